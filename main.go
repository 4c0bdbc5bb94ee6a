package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/username/lotfolio/backend/src/config"
	"github.com/username/lotfolio/backend/src/database"
	"github.com/username/lotfolio/backend/src/handlers"
	"github.com/username/lotfolio/backend/src/ledger"
	"github.com/username/lotfolio/backend/src/logger"
	"github.com/username/lotfolio/backend/src/nbp"
	"github.com/username/lotfolio/backend/src/services"
	"github.com/username/lotfolio/backend/src/store"
	"golang.org/x/time/rate"
)

var limiter *rate.Limiter

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	allowed := make(map[string]bool, len(config.Cfg.AllowedOrigins))
	for _, origin := range config.Cfg.AllowedOrigins {
		allowed[origin] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("Lotfolio backend server starting...")

	limiter = rate.NewLimiter(rate.Every(config.Cfg.RateLimitInterval), config.Cfg.RateLimitBurst)

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	st := store.NewSQLStore(database.DB)
	locks := ledger.NewSecurityLocks()

	nbpClient := nbp.NewClient(st, config.Cfg.NBPBaseURL, config.Cfg.NBPTable, config.Cfg.NBPRequestTimeout)

	lotService := ledger.NewLotService(st, locks)
	reservationService := ledger.NewReservationService(st, locks)
	taxService := ledger.NewTaxService(st, nbpClient)

	stockService := services.NewStockService(st)
	transactionService := services.NewTransactionService(st, lotService, nbpClient)
	optionService := services.NewOptionService(st, reservationService, nbpClient)
	dividendService := services.NewDividendService(st)
	cashflowService := services.NewCashflowService(st)
	priceService := services.NewPriceService(st)

	stockHandler := handlers.NewStockHandler(stockService, priceService)
	txHandler := handlers.NewTransactionHandler(transactionService)
	lotHandler := handlers.NewLotHandler(lotService, reservationService)
	taxHandler := handlers.NewTaxHandler(taxService)
	optionHandler := handlers.NewOptionHandler(optionService)
	dividendHandler := handlers.NewDividendHandler(dividendService)
	cashflowHandler := handlers.NewCashflowHandler(cashflowService)
	rateHandler := handlers.NewRateHandler(nbpClient)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Lotfolio backend is running"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/stocks", stockHandler.HandleListStocks)
		r.Post("/stocks", stockHandler.HandleCreateStock)
		r.Get("/stocks/{id}", stockHandler.HandleGetStock)
		r.Post("/stocks/refresh-prices", stockHandler.HandleRefreshPrices)

		r.Get("/transactions", txHandler.HandleListTransactions)
		r.Post("/transactions", txHandler.HandleAddTransaction)
		r.Patch("/transactions/{id}/notes", txHandler.HandleUpdateNotes)

		r.Get("/lots", lotHandler.HandleListLots)
		r.Get("/lots/summary", lotHandler.HandleLotsSummary)
		r.Get("/lots/{id}/sales", lotHandler.HandleLotSales)
		r.Get("/lots/preview-sale", lotHandler.HandlePreviewSale)
		r.Get("/lots/availability", lotHandler.HandleCheckAvailability)

		r.Get("/realized-gains", taxHandler.HandleRealizedGains)
		r.Get("/tax-summary", taxHandler.HandleTaxSummary)
		r.Get("/dividend-tax", taxHandler.HandleDividendTax)
		r.Get("/capital-gains-tax", taxHandler.HandleCapitalGainsTax)
		r.Get("/option-premium-tax", taxHandler.HandleOptionPremiumTax)

		r.Get("/options", optionHandler.HandleListOptions)
		r.Post("/options", optionHandler.HandleOpenOption)
		r.Get("/options/{id}", optionHandler.HandleGetOption)
		r.Post("/options/{id}/close", optionHandler.HandleCloseOption)

		r.Get("/dividends", dividendHandler.HandleListDividends)
		r.Post("/dividends", dividendHandler.HandleAddDividend)
		r.Get("/dividends/summary", dividendHandler.HandleDividendSummary)

		r.Get("/cashflows", cashflowHandler.HandleListCashflows)
		r.Post("/cashflows", cashflowHandler.HandleAddCashflow)
		r.Get("/cashflows/summary", cashflowHandler.HandleCashflowSummary)

		r.Get("/rates/usdpln", rateHandler.HandleGetRate)
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
