package api

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/univocity/trader-replay/internal/simulation"
	"github.com/univocity/trader-replay/internal/strategy"
)

// runRecord tracks one launched parameter sweep for GetSimulation
// polling; sweeps run in a background goroutine since an HTTP request
// should not block for the duration of a replay.
type runRecord struct {
	Label   string
	State   string // "running", "done", "failed"
	Error   string
	Results []simulation.Result
}

type Handler struct {
	db     *pgxpool.Pool
	driver *simulation.Driver
	logger *zap.Logger

	mu   sync.Mutex
	runs map[string]*runRecord
}

func NewHandler(db *pgxpool.Pool, driver *simulation.Driver, logger *zap.Logger) *Handler {
	return &Handler{
		db:     db,
		driver: driver,
		logger: logger,
		runs:   make(map[string]*runRecord),
	}
}

// Auth handlers

func (h *Handler) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required,min=6"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	var userID int64
	err = h.db.QueryRow(c.Request.Context(),
		"INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id",
		req.Email, string(hash)).Scan(&userID)
	if err != nil {
		h.logger.Error("failed to register user", zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "user created", "id": userID})
}

func (h *Handler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var userID int64
	var hash string
	err := h.db.QueryRow(c.Request.Context(),
		"SELECT id, password_hash FROM users WHERE email = $1", req.Email).Scan(&userID, &hash)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token, err := GenerateToken(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Simulation handlers (spec.md §13)

// RunSimulation launches a parameter sweep and returns immediately
// with the run's tracking id; GetSimulation polls for completion.
func (h *Handler) RunSimulation(c *gin.Context) {
	var req struct {
		Symbol         string                 `json:"symbol" binding:"required"`
		StrategyType   string                 `json:"strategy_type" binding:"required"`
		Config         map[string]interface{} `json:"config"`
		InitialBalance decimal.Decimal        `json:"initial_balance"`
		StartTime      time.Time              `json:"start_time" binding:"required"`
		EndTime        time.Time              `json:"end_time" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	symbol := normalizeSymbol(req.Symbol)
	if _, err := strategy.NewStrategy(req.StrategyType, req.Config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	label := uuid.NewString()
	record := &runRecord{Label: label, State: "running"}
	h.mu.Lock()
	h.runs[label] = record
	h.mu.Unlock()

	params := simulation.Parameters{
		Label: label,
		Accounts: []simulation.AccountSpec{{
			Label:          symbol,
			InitialBalance: req.InitialBalance,
			SymbolPairs:    map[string]simulation.SymbolPair{symbol: {Asset: symbol, Fund: "USDT"}},
			StrategyFactory: func(sym string) strategy.Strategy {
				strat, _ := strategy.NewStrategy(req.StrategyType, req.Config)
				return strat
			},
		}},
		Start: req.StartTime,
		End:   req.EndTime,
	}

	go h.execute(label, params)

	c.JSON(http.StatusAccepted, gin.H{"run_label": label, "state": "running"})
}

func (h *Handler) execute(label string, params simulation.Parameters) {
	ch := make(chan simulation.Parameters, 1)
	ch <- params
	close(ch)

	results, err := h.driver.Run(context.Background(), ch)

	h.mu.Lock()
	defer h.mu.Unlock()
	record := h.runs[label]
	if record == nil {
		return
	}
	if err != nil {
		record.State = "failed"
		record.Error = err.Error()
		return
	}
	record.State = "done"
	record.Results = results
}

// GetSimulation reports a launched sweep's status and, once done, its
// reports.
func (h *Handler) GetSimulation(c *gin.Context) {
	label := c.Param("id")

	h.mu.Lock()
	record := h.runs[label]
	h.mu.Unlock()

	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown run"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_label": record.Label,
		"state":     record.State,
		"error":     record.Error,
		"results":   record.Results,
	})
}

func normalizeSymbol(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "/", "")
	s = strings.ReplaceAll(s, "_", "")
	return s
}
