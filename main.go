package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
)

/* ======================
   HTTP types
   ====================== */

type PurchaseConfirmRequest struct {
	UserID    int64  `json:"userId"`
	ProductID string `json:"productId"`
}

type PurchaseConfirmResponse struct {
	Decision GrantDecision `json:"decision"`
}

type ActivateEventRequest struct {
	EventID         string `json:"eventId"`
	DurationSeconds int64  `json:"durationSeconds,omitempty"`
}

type LeaderboardPage struct {
	Type    string             `json:"type"`
	Results []LeaderboardEntry `json:"results"`
}

/* ======================
   main()
   ====================== */

func main() {
	// Environment
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	log.Println("App environment:", env)

	// Database
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatal("failed to open database:", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		log.Fatal("failed to ping database:", err)
	}
	log.Println("Connected to PostgreSQL")

	if err := ensureSchema(db); err != nil {
		log.Fatal("Failed to ensure schema:", err)
	}

	// Content catalog
	catalog, err := LoadCatalog(os.Getenv("CATALOG_PATH"))
	if err != nil {
		log.Fatal("Failed to load catalog:", err)
	}
	log.Printf("Catalog loaded: %d upgrades, %d zones, %d achievements, %d events",
		len(catalog.Upgrades), len(catalog.Zones), len(catalog.Achievements), len(catalog.Events))

	// Services
	store := NewDataStore(&postgresKV{db: db})
	boards := &postgresSnapshots{db: db}
	svc := NewEconomyService(store, boards, catalog)

	scheduler := NewEventScheduler(catalog.Events, svc.BroadcastEventUpdate)
	svc.SetEventScheduler(scheduler)

	// Background loops
	startIncomeLoop(svc)
	startAutoSaveLoop(svc)
	startEventCron(scheduler)

	// HTTP server
	mux := http.NewServeMux()
	registerRoutes(mux, db, svc, boards, scheduler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	addr := "0.0.0.0:" + port
	log.Println("Listening on", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal("server failed:", err)
	}
}

/* ======================
   Routes
   ====================== */

func registerRoutes(mux *http.ServeMux, db *sql.DB, svc *EconomyService, boards SnapshotStore, scheduler *EventScheduler) {
	mux.HandleFunc("/health", healthHandler(db))
	mux.HandleFunc("/ws", wsHandler(svc))
	mux.HandleFunc("/leaderboard", leaderboardHandler(boards))
	mux.HandleFunc("/purchases/confirm", purchaseConfirmHandler(svc))
	mux.HandleFunc("/admin/activate-event", activateEventHandler(scheduler))
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			http.Error(w, "db unreachable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func leaderboardHandler(boards SnapshotStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		kind := r.URL.Query().Get("type")
		if kind == "" {
			kind = "currency"
		}
		if !validLeaderboardKind(kind) {
			http.Error(w, "unknown leaderboard type", http.StatusBadRequest)
			return
		}

		snaps, err := boards.Top(kind, leaderboardTopN)
		if err != nil {
			log.Println("[leaderboard] query failed:", err)
			http.Error(w, "leaderboard unavailable", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(LeaderboardPage{Type: kind, Results: rankSnapshots(kind, snaps)})
	}
}

// purchaseConfirmHandler is the receipt-decision endpoint for the payment
// processor: "granted" consumes the receipt, "not_processed" tells the
// processor to retry later.
func purchaseConfirmHandler(svc *EconomyService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var req PurchaseConfirmRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID <= 0 || req.ProductID == "" {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}

		decision := svc.GrantEntitlement(req.UserID, req.ProductID)
		log.Printf("[purchases] user %d product %s -> %s", req.UserID, req.ProductID, decision)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(PurchaseConfirmResponse{Decision: decision})
	}
}

func activateEventHandler(scheduler *EventScheduler) http.HandlerFunc {
	secret := os.Getenv("ADMIN_SECRET")

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if secret == "" || r.Header.Get("X-Admin-Secret") != secret {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		var req ActivateEventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EventID == "" {
			http.Error(w, "invalid request", http.StatusBadRequest)
			return
		}
		duration := time.Duration(req.DurationSeconds) * time.Second
		if duration <= 0 {
			duration = time.Hour
		}

		if !scheduler.ActivateManually(req.EventID, duration, time.Now().UTC()) {
			http.Error(w, "unknown event", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"activated": req.EventID, "duration": strconv.FormatInt(int64(duration.Seconds()), 10)})
	}
}
