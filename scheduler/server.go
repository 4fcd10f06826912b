package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/devskill-org/sunclock/daytable"
	"github.com/devskill-org/sunclock/ephemeris"
	"github.com/devskill-org/sunclock/simclock"
	"github.com/devskill-org/sunclock/utils"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// WebServer provides HTTP endpoints for health checking and the simulated
// clock, and pushes clock updates to websocket clients.
type WebServer struct {
	scheduler *ClockScheduler
	server    *http.Server
	port      int
	startTime time.Time
	upgrader  websocket.Upgrader
	clients   sync.Map // *wsClient -> bool
	limiter   *rate.Limiter
	broadcast chan []byte
	done      chan struct{}
	stopOnce  sync.Once
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string          `json:"status"`
	Timestamp string          `json:"timestamp"`
	Version   string          `json:"version,omitempty"`
	Scheduler SchedulerHealth `json:"scheduler"`
	System    SystemHealth    `json:"system"`
}

// SchedulerHealth represents scheduler-specific health information
type SchedulerHealth struct {
	IsRunning    bool    `json:"is_running"`
	Days         int     `json:"days"`
	Ticks        uint64  `json:"ticks"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	TickInterval string  `json:"tick_interval"`
	TickStep     string  `json:"tick_step"`
}

// SystemHealth represents system-level health information
type SystemHealth struct {
	Uptime     string `json:"uptime"`
	Memory     string `json:"memory,omitempty"`
	Goroutines int    `json:"goroutines,omitempty"`
}

// DayInfo describes one simulated day for the web UI
type DayInfo struct {
	Index       int                   `json:"index"`
	Date        string                `json:"date"`
	Sunrise     string                `json:"sunrise"`
	Transit     string                `json:"transit"`
	Sunset      string                `json:"sunset"`
	Daylight    string                `json:"daylight"`
	RiseAzimuth float64               `json:"rise_azimuth"`
	SetAzimuth  float64               `json:"set_azimuth"`
	Entry       daytable.Entry        `json:"entry"`
	Track       []daytable.TrackPoint `json:"track"`
}

// NewWebServer creates a new web server. It returns nil when port is not
// positive; a nil *WebServer is safe to use.
func NewWebServer(scheduler *ClockScheduler, port int, broadcastInterval time.Duration) *WebServer {
	if port <= 0 {
		return nil // Web server disabled
	}

	limit := rate.Inf
	if broadcastInterval > 0 {
		limit = rate.Every(broadcastInterval)
	}

	mux := http.NewServeMux()
	hs := &WebServer{
		scheduler: scheduler,
		port:      port,
		startTime: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		limiter:   rate.NewLimiter(limit, 1),
		broadcast: make(chan []byte, 256),
		done:      make(chan struct{}),
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	mux.HandleFunc("/api/health", hs.healthHandler)
	mux.HandleFunc("/api/ready", hs.readinessHandler)
	mux.HandleFunc("/api/status", hs.statusHandler)
	mux.HandleFunc("/api/table", hs.tableHandler)
	mux.HandleFunc("/api/ws", hs.wsHandler)

	return hs
}

// Start starts the web server
func (hs *WebServer) Start() error {
	if hs == nil {
		return nil // Web server disabled
	}

	go hs.handleBroadcasts()

	go func() {
		if err := hs.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			hs.scheduler.logger.Printf("Web server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully stops the web server
func (hs *WebServer) Stop(ctx context.Context) error {
	if hs == nil {
		return nil // Web server disabled
	}

	hs.stopOnce.Do(func() {
		close(hs.done)
	})

	hs.clients.Range(func(key, value any) bool {
		if client, ok := key.(*wsClient); ok {
			client.conn.Close()
		}
		return true
	})

	return hs.server.Shutdown(ctx)
}

// Publish queues a snapshot for the websocket clients. Snapshots arriving
// faster than the broadcast interval, or while nobody listens, are dropped.
func (hs *WebServer) Publish(snap simclock.Snapshot) {
	if hs == nil || !hs.hasClients() || !hs.limiter.Allow() {
		return
	}

	message, err := json.Marshal(hs.buildSnapshotData(snap))
	if err != nil {
		hs.scheduler.logger.Printf("Failed to marshal snapshot: %v", err)
		return
	}

	select {
	case hs.broadcast <- message:
	default:
		// clients are not keeping up
	}
}

// healthHandler handles the /api/health endpoint
func (hs *WebServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := hs.buildHealth()

	w.Header().Set("Content-Type", "application/json")
	if health.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(health); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// readinessHandler handles the /api/ready endpoint
func (hs *WebServer) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := hs.scheduler.GetStatus()

	ready := map[string]any{
		"ready":     status.IsRunning,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")

	if !status.IsRunning {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(ready); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// statusHandler handles the /api/status endpoint (detailed status)
func (hs *WebServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"scheduler_status": hs.scheduler.GetStatus(),
		"clock":            hs.buildSnapshotData(hs.scheduler.Snapshot()),
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// tableHandler handles the /api/table endpoint
func (hs *WebServer) tableHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(hs.buildTableData()); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// wsHandler handles WebSocket connections
func (hs *WebServer) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := hs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		hs.scheduler.logger.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &wsClient{conn: conn}
	hs.clients.Store(client, true)
	hs.scheduler.logger.Printf("New WebSocket client connected. Total clients: %d", hs.clientCount())

	// Send the current clock immediately
	if message, err := json.Marshal(hs.buildSnapshotData(hs.scheduler.Snapshot())); err == nil {
		if err := client.write(message); err != nil {
			hs.scheduler.logger.Printf("Failed to send initial data: %v", err)
		}
	}

	defer func() {
		hs.clients.Delete(client)
		conn.Close()
		hs.scheduler.logger.Printf("WebSocket client disconnected. Total clients: %d", hs.clientCount())
	}()

	// Read messages from client (ping/pong, close)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				hs.scheduler.logger.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// handleBroadcasts sends messages to all connected clients
func (hs *WebServer) handleBroadcasts() {
	for {
		select {
		case message := <-hs.broadcast:
			hs.clients.Range(func(key, value any) bool {
				client, ok := key.(*wsClient)
				if !ok {
					return true
				}

				if err := client.write(message); err != nil {
					hs.scheduler.logger.Printf("WebSocket write error: %v", err)
					client.conn.Close()
					hs.clients.Delete(client)
				}
				return true
			})
		case <-hs.done:
			return
		}
	}
}

func (hs *WebServer) hasClients() bool {
	found := false
	hs.clients.Range(func(key, value any) bool {
		found = true
		return false
	})
	return found
}

func (hs *WebServer) clientCount() int {
	count := 0
	hs.clients.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}

func (hs *WebServer) buildHealth() HealthResponse {
	status := hs.scheduler.GetStatus()
	config := hs.scheduler.GetConfig()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	health := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
		Scheduler: SchedulerHealth{
			IsRunning:    status.IsRunning,
			Days:         status.Days,
			Ticks:        status.Ticks,
			Latitude:     config.Latitude,
			Longitude:    config.Longitude,
			TickInterval: config.TickInterval.String(),
			TickStep:     config.TickStep.String(),
		},
		System: SystemHealth{
			Uptime:     formatUptime(time.Since(hs.startTime)),
			Memory:     fmt.Sprintf("%.1f MiB", float64(mem.Alloc)/(1<<20)),
			Goroutines: runtime.NumGoroutine(),
		},
	}

	if !status.IsRunning {
		health.Status = "unhealthy"
	}
	return health
}

// buildSnapshotData converts a snapshot to the JSON payload sent to clients
func (hs *WebServer) buildSnapshotData(snap simclock.Snapshot) map[string]any {
	now := hs.scheduler.LocalTime(snap.JulianDay)

	event := func(ev simclock.Event) map[string]any {
		return map[string]any{
			"label":      ev.Label,
			"time":       hs.scheduler.LocalTime(ev.JulianDay).Format(time.RFC3339),
			"julian_day": ev.JulianDay,
			"countdown":  utils.FormatCountdown(ev.Countdown),
		}
	}

	return map[string]any{
		"type":       "snapshot",
		"day":        snap.State.Day,
		"tick":       snap.State.Tick,
		"time":       now.Format(time.RFC3339),
		"julian_day": snap.JulianDay,
		"phase":      snap.Phase,
		"daylight":   snap.Daylight,
		"next_rise":  event(snap.NextRise),
		"next_set":   event(snap.NextSet),
		"sun": map[string]any{
			"azimuth":       snap.Azimuth,
			"azimuth_south": utils.SouthAzimuth(snap.Azimuth),
			"altitude":      snap.Altitude,
			"visible":       snap.SunVisible,
		},
	}
}

func (hs *WebServer) buildTableData() map[string]any {
	table := hs.scheduler.Simulator().Table()
	segments := hs.scheduler.GetConfig().TrackSegments
	latitude := table.Observer().Latitude

	days := make([]DayInfo, 0, table.Len())
	for i, e := range table.Entries() {
		rise := hs.scheduler.LocalTime(e.Rise)
		days = append(days, DayInfo{
			Index:       i,
			Date:        rise.Format(StartDateLayout),
			Sunrise:     rise.Format(time.RFC3339),
			Transit:     hs.scheduler.LocalTime(e.Transit).Format(time.RFC3339),
			Sunset:      hs.scheduler.LocalTime(e.Set).Format(time.RFC3339),
			Daylight:    ephemeris.DaysToDuration(e.DayLength()).Round(time.Second).String(),
			RiseAzimuth: e.RiseAzimuth,
			SetAzimuth:  e.SetAzimuth,
			Entry:       e,
			Track:       e.Track(segments, latitude),
		})
	}

	return map[string]any{
		"observer": table.Observer(),
		"timezone": hs.scheduler.Location().String(),
		"days":     days,
	}
}

// formatUptime formats duration in a human-readable way
func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
