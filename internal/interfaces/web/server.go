package web

import (
	"bufio"
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/example/bookingwidget/internal/application/widget"
	"github.com/example/bookingwidget/internal/domain/booking"
	"github.com/example/bookingwidget/internal/infrastructure/config"
	"github.com/example/bookingwidget/internal/infrastructure/metrics"
)

// Inbound widget messages allowed per connection.
const (
	inboundRate  = 50
	inboundBurst = 100
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

// Server hosts the demo page and one widget mount per websocket connection.
type Server struct {
	// Base is merged under the configuration each mount supplies.
	Base      config.Widget
	NewClient func() booking.SchedulingClient
	Cookies   *VisitorCookies
	Log       *slog.Logger
	Operator  *slog.Logger
	Metrics   *metrics.Widget
	Gatherer  prometheus.Gatherer

	tmpl *template.Template
}

type pageData struct {
	Title      string
	TargetID   string
	InitConfig map[string]any
}

func (s *Server) Routes() (http.Handler, error) {
	tmpl, err := ParseTemplates()
	if err != nil {
		return nil, err
	}
	s.tmpl = tmpl
	if s.Log == nil {
		s.Log = slog.Default()
	}
	if s.Operator == nil {
		s.Operator = s.Log
	}
	gatherer := s.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(s.Log))

	r.Handle("/static/*", http.FileServer(http.FS(assets)))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/ws", s.handleWidget)
	r.Get("/", s.handleHome)
	return r, nil
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	if s.Cookies != nil {
		if _, err := s.Cookies.Ensure(w, r); err != nil {
			s.Log.Warn("issue visitor cookie", "err", err)
		}
	}
	target := s.Base.TargetEl
	s.render(w, "base", pageData{
		Title:      "Book a meeting",
		TargetID:   strings.TrimPrefix(target, "#"),
		InitConfig: map[string]any{"targetEl": target},
	})
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleWidget(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	mount := []any{"mount_id", uuid.NewString()}
	if s.Cookies != nil {
		if id, ok := s.Cookies.VisitorID(r); ok {
			mount = append(mount, "visitor", id)
		}
	}
	log := s.Log.With("remote", r.RemoteAddr).With(mount...)
	s.serveWidget(context.WithoutCancel(r.Context()), conn, log, s.Operator.With(mount...))
}

// serveWidget mounts one widget for the lifetime of conn. The first message
// must carry the mount configuration.
func (s *Server) serveWidget(ctx context.Context, conn *websocket.Conn, log, operator *slog.Logger) {
	defer conn.Close()

	bridge := NewBridge(conn, s.tmpl, log)
	defer bridge.close()
	ctrl := widget.New(widget.Deps{
		Client:  s.NewClient(),
		View:    bridge,
		Surface: bridge,
		Logger:  operator,
		Metrics: s.Metrics,
	})

	var first inbound
	if err := conn.ReadJSON(&first); err != nil {
		return
	}
	if first.Type != msgInit {
		log.Warn("widget connection did not start with init", "type", first.Type)
		return
	}
	if err := ctrl.Init(ctx, s.Base, first.Config); err != nil {
		return
	}
	defer func() {
		bridge.close()
		ctrl.Unmount()
	}()
	log.Debug("widget mounted")

	limiter := rate.NewLimiter(rate.Limit(inboundRate), inboundBurst)
	throttled := false
	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				log.Debug("widget connection read failed", "err", err)
			}
			return
		}
		if !limiter.Allow() {
			if !throttled {
				log.Warn("widget connection throttled", "limit", inboundRate)
				throttled = true
			}
			continue
		}
		s.route(ctrl, bridge, msg)
	}
}

func (s *Server) route(ctrl *widget.Controller, bridge *Bridge, msg inbound) {
	switch msg.Type {
	case msgLoad:
		ctrl.Dispatch(widget.Loaded{Width: msg.Width, TimezoneOffsetMinutes: msg.TzOffset})
	case msgResize:
		bridge.resized(msg.Width)
	case msgSlotClick:
		if msg.Slot != nil {
			bridge.slotClicked(*msg.Slot)
		}
	case msgSubmit:
		ctrl.Dispatch(widget.FormSubmitted{Values: msg.Values})
	case msgClose:
		ctrl.Dispatch(widget.CloseClicked{})
	case msgKeyUp:
		ctrl.Dispatch(widget.KeyPressed{Key: msg.Key})
	case msgControlResult:
		bridge.controlResult(msg)
	case msgCalendar:
		// Calendar calls wait on a control result read by this same loop.
		go func(id int64, args []any) {
			res, ok := ctrl.Calendar(args...)
			_ = bridge.send(outbound{Type: msgCalendarResult, ID: id, Result: res, OK: ok})
		}(msg.ID, msg.Args)
	}
}

// Start serves h on addr until ctx is cancelled.
func Start(ctx context.Context, addr string, h http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(p)
}

// Hijack keeps websocket upgrades working behind the access log.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func accessLog(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r)
			log.Info("http request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
