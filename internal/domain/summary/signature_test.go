package summary

import (
	"testing"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
	"github.com/stretchr/testify/assert"
)

func TestRouteSetSignature(t *testing.T) {
	views := testViews()
	sig := RouteSetSignature(views)
	assert.Equal(t, "0:5000:700:4;1:6000:600:5;2:6500:600:3", sig)
	assert.Equal(t, sig, RouteSetSignature(testViews()))

	changed := testViews()
	changed[2].Duration = 610
	assert.NotEqual(t, sig, RouteSetSignature(changed))

	assert.Equal(t, "", RouteSetSignature(nil))
	assert.Equal(t, "", RouteSetSignature([]route.RouteView{}))
}

func TestShouldInvoke(t *testing.T) {
	assert.True(t, ShouldInvoke("", "0:1:1:1"))
	assert.True(t, ShouldInvoke("0:1:1:1", "0:1:2:1"))
	assert.False(t, ShouldInvoke("0:1:1:1", "0:1:1:1"))
	assert.False(t, ShouldInvoke("0:1:1:1", ""))
}
