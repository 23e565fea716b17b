package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cmlabs-hris/shift-payroll-go/internal/config"
	appHTTP "github.com/cmlabs-hris/shift-payroll-go/internal/handler/http"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/cron"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/database"
	"github.com/cmlabs-hris/shift-payroll-go/internal/pkg/lock"
	"github.com/cmlabs-hris/shift-payroll-go/internal/repository/postgresql"
	advanceService "github.com/cmlabs-hris/shift-payroll-go/internal/service/advance"
	attendanceService "github.com/cmlabs-hris/shift-payroll-go/internal/service/attendance"
	payrollService "github.com/cmlabs-hris/shift-payroll-go/internal/service/payroll"
	statutoryService "github.com/cmlabs-hris/shift-payroll-go/internal/service/statutory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Println("Invalid config:", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	db, err := database.NewPostgreSQLDB(cfg.DatabaseURL(), database.PoolConfig{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		slog.Error("Error connecting to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var locker lock.Locker = lock.NewLocalLocker()
	if addr := cfg.RedisAddr(); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		if err := client.Ping(context.Background()).Err(); err != nil {
			slog.Error("Error connecting to redis", "addr", addr, "error", err)
			os.Exit(1)
		}
		locker = lock.NewRedisLocker(client, lock.RedisOptions{
			TTL:     cfg.Payroll.LockTTL,
			MaxWait: cfg.Payroll.LockMaxWait,
		})
		slog.Info("Using redis locks", "addr", addr)
	}

	txManager := postgresql.NewTxManager(db)
	employeeRepo := postgresql.NewEmployeeRepository(db)
	attendanceRepo := postgresql.NewAttendanceRepository(db)
	attendanceCodeRepo := postgresql.NewAttendanceCodeRepository(db)
	statutoryRepo := postgresql.NewStatutoryRepository(db)
	loanRepo := postgresql.NewAdvanceLoanRepository(db)
	skipRepo := postgresql.NewAdvanceSkipRepository(db)
	recordRepo := postgresql.NewSalaryRecordRepository(db)
	deductionTypeRepo := postgresql.NewDeductionTypeRepository(db)

	ledger := advanceService.NewLedger(txManager, locker, loanRepo, skipRepo, recordRepo)
	calculator := payrollService.NewCalculator(
		employeeRepo,
		attendanceService.NewAggregator(attendanceRepo, attendanceCodeRepo),
		statutoryService.NewResolver(statutoryRepo),
		ledger,
	)
	recordStore := payrollService.NewRecordStore(txManager, locker, recordRepo, calculator, ledger)
	deductionEngine := payrollService.NewDeductionEngine(txManager, locker, recordRepo, deductionTypeRepo, ledger)
	batchRunner := payrollService.NewBatchRunner(employeeRepo, calculator, cfg.Payroll.BatchConcurrency)
	payrollSvc := payrollService.NewPayrollService(calculator, batchRunner, recordStore, deductionEngine, recordRepo, deductionTypeRepo)

	scheduler := cron.NewScheduler(time.UTC)
	jobs := cron.NewPayrollJobs(payrollSvc, ledger)
	if err := jobs.RegisterJobs(scheduler, cfg.Payroll.AutoGenerateSchedule, cfg.Payroll.OverdueReportSchedule); err != nil {
		slog.Error("Error registering payroll jobs", "error", err)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	router := appHTTP.NewRouter(
		cfg.App,
		appHTTP.NewPayrollHandler(payrollSvc),
		appHTTP.NewAdvanceHandler(ledger),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server running", "addr", server.Addr, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}
