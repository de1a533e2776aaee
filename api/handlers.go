package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"realestate-comps/services"
)

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"listings":     s.queries.Len(),
		"model_loaded": s.queries.HasModel(),
	})
}

func (s *Server) listListings(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSONResponse(w, http.StatusOK, s.queries.Browse(f))
}

func (s *Server) getListing(w http.ResponseWriter, r *http.Request) {
	l, err := s.queries.Listing(mux.Vars(r)["id"])
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, l)
}

func (s *Server) getComps(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	n := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeErrorResponse(w, http.StatusBadRequest, "n must be a positive integer")
			return
		}
		n = v
	}
	comps, err := s.queries.Comps(id, n)
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"listing_id": id,
		"comps":      comps,
	})
}

func (s *Server) getEstimate(w http.ResponseWriter, r *http.Request) {
	est, err := s.queries.Estimate(mux.Vars(r)["id"])
	if err != nil {
		s.writeQueryError(w, r, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, est)
}

func (s *Server) getInsights(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, s.queries.Insights())
}

func (s *Server) getFilters(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, s.queries.FilterOptions())
}

// writeQueryError logs unexpected failures and hides their detail from clients.
func (s *Server) writeQueryError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("[api] %s %s: %v", r.Method, r.URL.Path, err)
		writeErrorResponse(w, status, "internal error")
		return
	}
	writeErrorResponse(w, status, err.Error())
}

func parseFilter(r *http.Request) (services.ListingFilter, error) {
	q := r.URL.Query()
	f := services.ListingFilter{
		Q:            q.Get("q"),
		Neighborhood: q.Get("neighborhood"),
		PropertyType: q.Get("property_type"),
		Sort:         q.Get("sort"),
	}
	switch f.Sort {
	case "", "price_asc", "price_desc":
	default:
		return f, fmt.Errorf("sort must be price_asc or price_desc")
	}

	var err error
	floats := []struct {
		key string
		dst **float64
	}{
		{"min_price", &f.MinPrice}, {"max_price", &f.MaxPrice},
		{"min_baths", &f.MinBaths}, {"max_baths", &f.MaxBaths},
		{"min_sqm", &f.MinSqm}, {"max_sqm", &f.MaxSqm},
	}
	for _, p := range floats {
		if *p.dst, err = optionalFloat(q.Get(p.key)); err != nil {
			return f, fmt.Errorf("%s: %w", p.key, err)
		}
	}
	if f.MinBeds, err = optionalInt(q.Get("min_beds")); err != nil {
		return f, fmt.Errorf("min_beds: %w", err)
	}
	if f.MaxBeds, err = optionalInt(q.Get("max_beds")); err != nil {
		return f, fmt.Errorf("max_beds: %w", err)
	}

	flags := []struct {
		key string
		dst **bool
	}{
		{"furnished", &f.Furnished}, {"has_elevator", &f.HasElevator},
		{"has_parking_space", &f.HasParkingSpace}, {"has_garden", &f.HasGarden},
	}
	for _, p := range flags {
		if *p.dst, err = optionalBool(q.Get(p.key)); err != nil {
			return f, fmt.Errorf("%s: %w", p.key, err)
		}
	}

	f.Page = parseIntParam(q.Get("page"), 1)
	f.PerPage = parseIntParam(q.Get("per_page"), services.DefaultPerPage)
	return f, nil
}

func optionalFloat(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", raw)
	}
	return &v, nil
}

func optionalInt(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("not an integer: %q", raw)
	}
	return &v, nil
}

func optionalBool(raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("not a boolean: %q", raw)
	}
	return &v, nil
}

func parseIntParam(raw string, fallback int) int {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	return v
}
