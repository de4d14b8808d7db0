package handler

import (
	"net/http"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/application"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/response"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

const geoJSONContentType = "application/geo+json"

// GeoJSON handles GET /api/v1/plans/:id/geojson. The collection holds the
// visible routes in draw order; with markers=true the selected route's
// checkpoints follow as points.
func (h *PlanHandler) GeoJSON(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	plan, err := h.service.GetPlan(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	var markers []route.RouteMarker
	if c.Query("markers") == "true" && len(plan.Routes) > 0 {
		result, err := h.service.Markers(c.Request.Context(), id, plan.Selection.SelectedIndex, 0, 0)
		if err != nil {
			writeError(c, err)
			return
		}
		markers = result.Markers
	}

	body, err := buildFeatureCollection(plan, markers).MarshalJSON()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Data(http.StatusOK, geoJSONContentType, body)
}

func buildFeatureCollection(plan *application.PlanDTO, markers []route.RouteMarker) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, d := range route.DrawOrder(plan.Displays) {
		if d.Index < 0 || d.Index >= len(plan.Routes) {
			continue
		}
		v := plan.Routes[d.Index]

		line := make(orb.LineString, len(v.Coordinates))
		for i, p := range v.Coordinates {
			line[i] = toPoint(p)
		}

		f := geojson.NewFeature(line)
		f.ID = v.ID.String()
		f.Properties["kind"] = "route"
		f.Properties["index"] = v.Index
		f.Properties["color"] = v.Color
		f.Properties["primary"] = d.Primary
		f.Properties["selected"] = d.Selected
		f.Properties["emphasis"] = d.Emphasis.String()
		f.Properties["z_index"] = d.ZIndex
		f.Properties["layers"] = d.Layers
		f.Properties["distance"] = v.Distance
		f.Properties["duration"] = v.Duration
		fc.Append(f)
	}

	for i, m := range markers {
		f := geojson.NewFeature(toPoint(m.Location))
		f.Properties["kind"] = "marker"
		f.Properties["route_index"] = plan.Selection.SelectedIndex
		f.Properties["sequence"] = i
		f.Properties["distance_covered"] = m.DistanceCovered
		f.Properties["distance_remaining"] = m.DistanceRemaining
		f.Properties["time_remaining"] = m.TimeRemaining
		fc.Append(f)
	}

	return fc
}

func toPoint(c route.Coordinate) orb.Point {
	return orb.Point{c.Lng, c.Lat}
}
