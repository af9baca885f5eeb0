package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"stockcount-api/internal/model"
	"stockcount-api/internal/service"
	"stockcount-api/pkg/apierror"
	"stockcount-api/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// forceOnline reads the ?online= flag.
func forceOnline(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("online"))
	return v
}

// statusFilter reads the ?status= filter (all, complete or pending).
func statusFilter(r *http.Request) (service.StatusFilter, *apierror.Error) {
	filter, ok := service.ParseStatusFilter(r.URL.Query().Get("status"))
	if !ok {
		return filter, apierror.BadRequest("status must be all, complete or pending")
	}
	return filter, nil
}

// filteredRows runs read and narrows its rows to those matching the request's status filter.
func filteredRows(w http.ResponseWriter, r *http.Request,
	read func() service.ReadResult[[]model.InventoryRecord]) (service.ReadResult[[]model.InventoryRecord], bool) {
	filter, apiErr := statusFilter(r)
	if apiErr != nil {
		response.Error(w, apiErr)
		return service.ReadResult[[]model.InventoryRecord]{}, false
	}
	res := read()
	res.Value = service.FilterByStatus(res.Value, filter)
	return res, true
}

// decodeJSON decodes the request body into dst and validates it.
func decodeJSON(r *http.Request, dst interface{}) *apierror.Error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apierror.BadRequest("invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError converts validator errors into field details.
func validationError(err error) *apierror.Error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apierror.BadRequest(err.Error())
	}
	details := make([]apierror.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, apierror.FieldError{
			Field:   strings.ToLower(fe.Field()),
			Message: "failed on " + fe.Tag(),
		})
	}
	return apierror.ValidationError("validation failed", details...)
}

// tableParam parses the {table} path segment.
func tableParam(r *http.Request) (model.Table, *apierror.Error) {
	name := chi.URLParam(r, "table")
	table, ok := model.ParseTable(name)
	if !ok {
		return "", apierror.UnknownTable(name)
	}
	return table, nil
}

// pagination reads ?page= and ?limit= with the given default limit.
func pagination(r *http.Request, defaultLimit, maxLimit int) (page, limit int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > maxLimit {
		limit = defaultLimit
	}
	return page, limit
}
