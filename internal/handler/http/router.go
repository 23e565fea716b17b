package http

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"

	"github.com/cmlabs-hris/shift-payroll-go/internal/config"
)

func NewRouter(app config.AppConfig, payrollHandler PayrollHandler, advanceHandler AdvanceHandler) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(app.Env != "development")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "shift-payroll"),
		slog.String("version", "v1.0.0"),
		slog.String("env", app.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  app.SlogLevel(),
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/payroll", func(r chi.Router) {
			r.Get("/preview", payrollHandler.Preview)
			r.Post("/batch", payrollHandler.RunBatch)
			r.Post("/runs", payrollHandler.RunAndSave)
			r.Get("/summary", payrollHandler.GetPeriodSummary)
			r.Get("/deduction-types", payrollHandler.ListDeductionTypes)

			r.Route("/records", func(r chi.Router) {
				r.Get("/", payrollHandler.ListRecords)
				r.Post("/", payrollHandler.SaveRecords)
				r.Post("/disburse", payrollHandler.DisburseBulk)
				r.Post("/deductions", payrollHandler.ApplyBulkDeduction)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", payrollHandler.GetRecord)
					r.Patch("/", payrollHandler.EditRecord)
					r.Post("/disburse", payrollHandler.Disburse)
				})
			})
		})

		r.Route("/advances", func(r chi.Router) {
			r.Get("/overdue", advanceHandler.ListOverdue)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", advanceHandler.GetLoan)
				r.Post("/skips", advanceHandler.SkipPeriod)
				r.Delete("/skips/{period}", advanceHandler.RemoveSkip)
			})
		})
	})
	return r
}
