// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"vacation_deals/internal/app"
	"vacation_deals/internal/domain"
)

type Handlers struct {
	Storefront *app.StorefrontService
	Editor     *app.EditorService
	Directory  *app.DirectoryService
	// Checks are run by /healthz, keyed by dependency name.
	Checks map[string]func(context.Context) error
}

type problem struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

const maxBody = 1 << 20

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", h.healthz)

	s.mux.Route("/v1", func(r chi.Router) {
		r.Get("/deals", h.listDeals)
		r.Get("/deals/{id}", h.getDeal)
		r.Get("/deals/{id}/calendar", h.getCalendar)

		r.Get("/directory/destinations", h.listDestinations)
		r.Get("/directory/hotels", h.listHotels)
		r.Get("/directory/airports", h.listAirports)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireToken(s.adminToken))
			r.Post("/deals", h.createDeal)
			r.Put("/deals/{id}", h.updateDeal)
			r.Delete("/deals/{id}", h.deleteDeal)
			r.Put("/deals/{id}/destination", h.assignPrimary)
			r.Post("/deals/{id}/destinations/{dest}", h.addDestination)
			r.Delete("/deals/{id}/destinations/{dest}", h.removeDestination)
			r.Post("/deals/{id}/destinations/{dest}/places/{place}/toggle", h.togglePlace)
			r.Post("/deals/{id}/destinations/{dest}/places/select-all", h.selectAllPlaces)
			r.Delete("/deals/{id}/destinations/{dest}/places", h.clearPlaces)
			r.Post("/deals/{id}/prices", h.addPrice)
			r.Put("/deals/{id}/prices/{index}", h.updatePrice)
			r.Patch("/deals/{id}/prices/{index}", h.patchPrice)
			r.Delete("/deals/{id}/prices/{index}", h.deletePrice)
			r.Post("/price-check", h.priceCheck)
		})
	})
}

const healthTimeout = 2 * time.Second

func (h *Handlers) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	names := make([]string, 0, len(h.Checks))
	for name := range h.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	var down []string
	for _, name := range names {
		if err := h.Checks[name](ctx); err != nil {
			log.Warn().Err(err).Str("check", name).Msg("health check failed")
			down = append(down, name)
		}
	}
	if len(down) > 0 {
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "unhealthy: "+strings.Join(down, ", "))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemFields(w, status, title, detail, nil)
}

func writeProblemFields(w http.ResponseWriter, status int, title, detail string, fields map[string]string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail, Errors: fields}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain and app errors onto problem responses.
func writeError(w http.ResponseWriter, err error) {
	var verr *app.ValidationError
	var ext *app.ExternalError
	switch {
	case errors.As(err, &verr):
		writeProblemFields(w, http.StatusUnprocessableEntity, "Invalid deal", "one or more fields are invalid", verr.Fields)
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrInvalidRange),
		errors.Is(err, domain.ErrInvalidDestination),
		errors.Is(err, domain.ErrUnknownDestination):
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid deal", err.Error())
	case errors.Is(err, domain.ErrIndexOutOfRange):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &ext):
		log.Warn().Err(err).Msg("deals api failure")
		writeProblem(w, http.StatusBadGateway, "Upstream Error", ext.Detail())
	default:
		log.Error().Err(err).Msg("unhandled error")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "unexpected error")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached writes v as JSON with an ETag, answering 304 when the client
// already has this version.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON body")
	}
}

// ---- storefront ----

func (h *Handlers) listDeals(w http.ResponseWriter, r *http.Request) {
	q := domain.SnapshotQuery{Limit: 20}
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 100 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 100")
			return
		}
		q.Limit = l
	}
	if ms := r.URL.Query().Get("max_price"); ms != "" {
		m, err := strconv.ParseFloat(ms, 64)
		if err != nil || m < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid max_price", "max_price must be a non-negative number")
			return
		}
		q.MaxPrice = &m
	}
	out, err := h.Storefront.ListDeals(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) getDeal(w http.ResponseWriter, r *http.Request) {
	v, err := h.Storefront.GetDeal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, v)
}

func (h *Handlers) getCalendar(w http.ResponseWriter, r *http.Request) {
	cal, err := h.Storefront.Calendar(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, cal)
}

// ---- directory ----

func (h *Handlers) listDestinations(w http.ResponseWriter, r *http.Request) {
	out, err := h.Directory.Destinations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) listHotels(w http.ResponseWriter, r *http.Request) {
	out, err := h.Directory.Hotels(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, out)
}

func (h *Handlers) listAirports(w http.ResponseWriter, r *http.Request) {
	out, err := h.Directory.Airports(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, out)
}

// ---- admin ----

func decodeDoc(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var doc map[string]any
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&doc); err != nil || doc == nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "body must be a JSON deal document")
		return nil, false
	}
	return doc, true
}

func (h *Handlers) createDeal(w http.ResponseWriter, r *http.Request) {
	doc, ok := decodeDoc(w, r)
	if !ok {
		return
	}
	d := app.MapDeal(doc)
	d.ID = "" // ids are assigned by the deals API
	if err := h.Editor.Save(r.Context(), &d); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, domain.ToPayload(&d))
}

func (h *Handlers) updateDeal(w http.ResponseWriter, r *http.Request) {
	doc, ok := decodeDoc(w, r)
	if !ok {
		return
	}
	d := app.MapDeal(doc)
	d.ID = chi.URLParam(r, "id")
	for i := range d.PriceEntries {
		d.PriceEntries[i].DealID = d.ID
	}
	if err := h.Editor.Save(r.Context(), &d); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.ToPayload(&d))
}

func (h *Handlers) deleteDeal(w http.ResponseWriter, r *http.Request) {
	if err := h.Editor.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func priceIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid index", "index must be an integer")
		return 0, false
	}
	return i, true
}

func (h *Handlers) patchPrice(w http.ResponseWriter, r *http.Request) {
	idx, ok := priceIndex(w, r)
	if !ok {
		return
	}
	var body struct {
		Disabled *bool `json:"disabled"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&body); err != nil || body.Disabled == nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", `body must be {"disabled": true|false}`)
		return
	}
	d, err := h.Editor.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Editor.SetPriceDisabled(r.Context(), d, idx, *body.Disabled); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.ToPayload(d))
}

func (h *Handlers) deletePrice(w http.ResponseWriter, r *http.Request) {
	idx, ok := priceIndex(w, r)
	if !ok {
		return
	}
	d, err := h.Editor.Load(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Editor.RemovePrice(r.Context(), d, idx); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- single edits ----

// edited answers an edit with the saved deal document.
func edited(w http.ResponseWriter, d *domain.Deal, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.ToPayload(d))
}

func (h *Handlers) assignPrimary(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", `body must be {"id": "<destination id>"}`)
		return
	}
	d, err := h.Editor.AssignPrimary(r.Context(), chi.URLParam(r, "id"), domain.Unresolved(body.ID))
	edited(w, d, err)
}

func (h *Handlers) addDestination(w http.ResponseWriter, r *http.Request) {
	d, err := h.Editor.AddDestination(r.Context(), chi.URLParam(r, "id"), domain.Unresolved(chi.URLParam(r, "dest")))
	edited(w, d, err)
}

func (h *Handlers) removeDestination(w http.ResponseWriter, r *http.Request) {
	d, err := h.Editor.RemoveDestination(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "dest"))
	edited(w, d, err)
}

func (h *Handlers) togglePlace(w http.ResponseWriter, r *http.Request) {
	d, err := h.Editor.TogglePlace(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "dest"),
		domain.Unresolved(chi.URLParam(r, "place")))
	edited(w, d, err)
}

// selectAllPlaces takes an optional {"places": [...]} body; without one every
// directory place of the destination is selected.
func (h *Handlers) selectAllPlaces(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Places []string `json:"places"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeProblem(w, http.StatusBadRequest, "Invalid body", `body must be empty or {"places": ["<place id>", ...]}`)
		return
	}
	visible := make([]domain.Ref, 0, len(body.Places))
	for _, id := range body.Places {
		visible = append(visible, domain.Unresolved(id))
	}
	d, err := h.Editor.SelectAllPlaces(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "dest"), visible)
	edited(w, d, err)
}

func (h *Handlers) clearPlaces(w http.ResponseWriter, r *http.Request) {
	d, err := h.Editor.ClearPlaces(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "dest"))
	edited(w, d, err)
}

func decodePricePatch(w http.ResponseWriter, r *http.Request) (domain.PriceEntryPatch, bool) {
	var doc map[string]any
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&doc); err != nil || doc == nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "body must be a JSON price document")
		return domain.PriceEntryPatch{}, false
	}
	patch, err := app.MapPricePatch(doc)
	if err != nil {
		writeError(w, err)
		return domain.PriceEntryPatch{}, false
	}
	if patch == (domain.PriceEntryPatch{}) {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "no price fields given")
		return domain.PriceEntryPatch{}, false
	}
	return patch, true
}

func (h *Handlers) addPrice(w http.ResponseWriter, r *http.Request) {
	patch, ok := decodePricePatch(w, r)
	if !ok {
		return
	}
	d, err := h.Editor.AddPrice(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, domain.ToPayload(d))
}

func (h *Handlers) updatePrice(w http.ResponseWriter, r *http.Request) {
	idx, ok := priceIndex(w, r)
	if !ok {
		return
	}
	patch, ok := decodePricePatch(w, r)
	if !ok {
		return
	}
	d, err := h.Editor.UpdatePrice(r.Context(), chi.URLParam(r, "id"), idx, patch)
	edited(w, d, err)
}

type priceCheckRequest struct {
	StartDate string `json:"startdate"`
	EndDate   string `json:"enddate"`
	Nights    int    `json:"nights"`
}

// priceCheck reports whether a date range matches the declared nights. A
// mismatch is advisory (200); only end < start is rejected.
func (h *Handlers) priceCheck(w http.ResponseWriter, r *http.Request) {
	var req priceCheckRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", "body must be JSON")
		return
	}
	start, ok1 := domain.ParseDate(req.StartDate)
	end, ok2 := domain.ParseDate(req.EndDate)
	if !ok1 || !ok2 {
		writeProblem(w, http.StatusBadRequest, "Invalid dates", "startdate and enddate must be ISO dates")
		return
	}
	res, err := domain.ValidateDateRange(domain.PriceEntry{StartDate: start, EndDate: end}, req.Nights)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
