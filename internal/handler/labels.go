package handler

import (
	"net/http"
	"strconv"

	"labelcam/internal/dto"
	"labelcam/internal/logger"
	"labelcam/internal/service"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// LabelsHandler returns a page of stored label records, oldest first.
func LabelsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), defaultPageSize)
		if limit > maxPageSize {
			limit = maxPageSize
		}

		records, err := manager.Labels().GetAll(r.Context())
		if err != nil {
			logger.Error("Error querying labels from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		start := len(records)
		if page-1 <= len(records)/limit {
			start = min((page-1)*limit, len(records))
		}
		end := start + limit
		if end > len(records) {
			end = len(records)
		}

		labels := make([]dto.LabelInfo, 0, end-start)
		for _, rec := range records[start:end] {
			labels = append(labels, dto.NewLabelInfo(rec))
		}

		writeJSON(w, http.StatusOK, dto.LabelsData{
			Labels:      labels,
			Length:      len(records),
			TotalPages:  (len(records) + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}, logger)
	}
}

// LabelClassesHandler returns the distinct detected classes that have labels.
func LabelClassesHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		classes, err := manager.Labels().GetClasses(r.Context())
		if err != nil {
			logger.Error("Error querying label classes: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, classes, logger)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
