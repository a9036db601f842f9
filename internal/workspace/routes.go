package workspace

import (
	"net/http"

	"github.com/EmpoweredVote/territory-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

func (ws *Workspace) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Get("/state", ws.GetState)
	r.Get("/stats", ws.GetStats)

	r.Get("/locations", ws.ListLocations)
	r.Post("/locations", ws.CreateLocation)
	r.Patch("/locations/{id}", ws.UpdateLocation)
	r.Delete("/locations/{id}", ws.DeleteLocation)
	r.Post("/locations/import", ws.ImportLocations)
	r.Get("/import/jobs/{jobID}", ws.GetImportJob)
	r.Get("/import/template", ws.ImportTemplate)

	r.Post("/regions/{regionID}/click", ws.ClickRegion)
	r.Put("/regions/{regionID}", ws.AssignRegion)
	r.Delete("/regions/{regionID}", ws.UnassignRegion)

	r.Put("/selection/active", ws.SetActiveLocation)
	r.Post("/selection/eraser", ws.ToggleEraser)
	r.Put("/selection/radius-preview", ws.SetRadiusPreview)
	r.Delete("/selection/radius-preview", ws.ClearRadiusPreview)
	r.Post("/selection/unassigned-only", ws.ToggleUnassignedOnly)

	r.Post("/viewport", ws.SetViewport)
	r.Post("/paint/begin", ws.BeginPaint)
	r.Post("/paint/sample", ws.PaintSample)
	r.Post("/paint/end", ws.EndPaint)

	r.Post("/radius", ws.RadiusAssign)
	r.Get("/radius/members", ws.RadiusMembers)

	r.Get("/export/json", ws.ExportJSON)
	r.Get("/export/csv", ws.ExportCSV)

	r.Post("/snapshots", ws.SaveSnapshot)
	r.Get("/snapshots", ws.ListSnapshots)

	r.Get("/ws", ws.Subscribe)

	// Admin routes - replace or discard the whole plan
	r.Group(func(r chi.Router) {
		r.Use(middleware.AdminToken(ws.adminHash))

		r.Post("/import", ws.ImportState)
		r.Post("/reset", ws.Reset)
		r.Post("/snapshots/{id}/restore", ws.RestoreSnapshot)
	})

	return r
}
