package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/repwatch/repwatch/internal/aggregator"
	"github.com/repwatch/repwatch/internal/alerts"
	"github.com/repwatch/repwatch/internal/models"
	"github.com/repwatch/repwatch/internal/reports"
	"github.com/repwatch/repwatch/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the monitoring service with scheduler and HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	logrus.Info("Starting repwatch service")

	backend, err := buildStorage(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	dispatcher := alerts.NewService(cfg)
	aggregatorService := aggregator.NewService(cfg, backend, dispatcher, aggregator.BuildSources(cfg))

	reportManager, err := buildReportManager(cfg, backend)
	if err != nil {
		return err
	}

	schedulerService := scheduler.NewService(cfg, aggregatorService)
	if err := schedulerService.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer schedulerService.Stop()

	router := newRouter(aggregatorService, reportManager)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
	return nil
}

func newRouter(aggregatorService *aggregator.Service, reportManager *reports.Manager) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler(aggregatorService)).Methods("GET")
	router.HandleFunc("/trigger", triggerHandler(aggregatorService)).Methods("POST")

	router.HandleFunc("/reports", submitReportHandler(reportManager)).Methods("POST")
	router.HandleFunc("/reports", listReportsHandler(reportManager)).Methods("GET")
	router.HandleFunc("/reports/{id}", getReportHandler(reportManager)).Methods("GET")
	router.HandleFunc("/reports/{id}/status", updateReportHandler(reportManager)).Methods("PATCH")

	return router
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(svc *aggregator.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(svc.GetMetrics()))
	}
}

func triggerHandler(svc *aggregator.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			if err := svc.Run(); err != nil {
				logrus.Errorf("Manual monitoring trigger failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"message":"Monitoring run triggered"}`))
	}
}

type submitReportRequest struct {
	PostID     string `json:"post_id"`
	Platform   string `json:"platform"`
	Text       string `json:"text,omitempty"`
	URL        string `json:"url,omitempty"`
	Reason     string `json:"reason"`
	ReportedBy string `json:"reported_by,omitempty"`
}

func submitReportHandler(manager *reports.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitReportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		post := models.PostData{
			ID:       req.PostID,
			Platform: models.Platform(req.Platform),
			Text:     req.Text,
			URL:      req.URL,
		}
		report, err := manager.Submit(post, models.ReportReason(req.Reason), req.ReportedBy)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, report)
	}
}

type updateReportRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
}

func updateReportHandler(manager *reports.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reportID := mux.Vars(r)["id"]

		var req updateReportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		report, err := manager.UpdateStatus(reportID, models.ReportStatus(req.Status), req.Notes)
		if err != nil {
			var invalid *reports.InvalidTransitionError
			switch {
			case errors.Is(err, reports.ErrNotFound):
				writeError(w, http.StatusNotFound, err.Error())
			case errors.As(err, &invalid):
				writeError(w, http.StatusConflict, err.Error())
			default:
				writeError(w, http.StatusInternalServerError, err.Error())
			}
			return
		}

		writeJSON(w, http.StatusOK, report)
	}
}

func getReportHandler(manager *reports.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := manager.Get(mux.Vars(r)["id"])
		if err != nil {
			if errors.Is(err, reports.ErrNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

func listReportsHandler(manager *reports.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := reports.Filter{
			Status:   models.ReportStatus(r.URL.Query().Get("status")),
			Platform: models.Platform(r.URL.Query().Get("platform")),
		}

		list, err := manager.List(filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"total":   len(list),
			"reports": list,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
