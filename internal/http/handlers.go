package httpapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/fleet-dispatch/internal/booking"
	"github.com/example/fleet-dispatch/internal/config"
	"github.com/example/fleet-dispatch/internal/geo"
	"github.com/example/fleet-dispatch/internal/ingest"
	"github.com/example/fleet-dispatch/internal/logging"
	"github.com/example/fleet-dispatch/internal/models"
	"github.com/example/fleet-dispatch/internal/payments"
	"github.com/example/fleet-dispatch/internal/push"
	"github.com/example/fleet-dispatch/internal/rooms"
	"github.com/example/fleet-dispatch/internal/storage"
	"github.com/example/fleet-dispatch/internal/timers"
)

type Server struct {
	Booking   *booking.Service
	Store     storage.Store
	Rooms     *rooms.Directory
	Kafka     *ingest.KafkaProducer
	JWTSecret string
	UploadDir string

	logger *slog.Logger
	mux    *mux.Router
}

// NewServer wires the whole process from config: redis geo when an address
// is configured with an in-memory fallback, postgres with a memory
// fallback, optional kafka/stripe/FCM collaborators.
func NewServer(cfg config.ServerConfig, logger *slog.Logger) *Server {
	var gidx geo.Index
	if cfg.RedisAddr != "" {
		gidx = geo.NewRedisIndex(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
	} else {
		gidx = geo.NewMemoryIndex()
	}

	var store storage.Store
	if cfg.PGDSN != "" {
		if ps, err := storage.NewPostgresStore(cfg.PGDSN); err == nil {
			store = ps
		} else {
			logger.Error("postgres unavailable, using memory store", "error", err)
		}
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}

	var kp *ingest.KafkaProducer
	if len(cfg.KafkaBrokers) > 0 {
		kp = ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	directory := rooms.NewDirectory()
	svc := &booking.Service{
		Store:          store,
		Rooms:          directory,
		Geo:            gidx,
		Timers:         timers.NewRegistry(),
		Log:            logger,
		DispatchRadius: cfg.DispatchRadiusMeters,
		RequestTimeout: cfg.BookingRequestTimeout,
		MaxDistance:    cfg.MaxDistanceMeters,
		Currency:       cfg.Currency,
	}
	if kp != nil {
		svc.Loc = kp
	}
	if key := os.Getenv("STRIPE_API_KEY"); key != "" {
		svc.Pay = payments.NewStripeClient(key)
	}
	if cfg.FCMEndpoint != "" {
		svc.Push = push.NewFCMSender(cfg.FCMEndpoint, cfg.FCMKey)
	}

	s := &Server{
		Booking:   svc,
		Store:     store,
		Rooms:     directory,
		Kafka:     kp,
		JWTSecret: cfg.JWTSecret,
		UploadDir: "uploads",
		logger:    logger,
		mux:       mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

// NewServerFromEnv keeps the zero-argument entry point for local runs.
func NewServerFromEnv() *Server {
	cfg, err := config.LoadServerConfig()
	logger := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		logger.Error("config load", "error", err)
	}
	return NewServer(cfg, logger)
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.Use(s.authMiddleware)
	api.HandleFunc("/bookings", s.handleCreateBooking).Methods("POST")
	api.HandleFunc("/bookings", s.handleListBookings).Methods("GET")
	api.HandleFunc("/bookings/{bookingId}", s.handleGetBooking).Methods("GET")
	api.HandleFunc("/bookings/{bookingId}/cancel", s.handleCancelBooking).Methods("PATCH")
	api.HandleFunc("/jobs/{bookingId}/status", s.handleUpdateJobStatus).Methods("PATCH")
	api.HandleFunc("/notifications", s.handleListNotifications).Methods("GET")
	api.HandleFunc("/notifications/{notificationId}/read", s.handleMarkNotificationRead).Methods("PATCH")

	s.mux.HandleFunc("/internal/mechanic/locations", s.handleMechanicLocation).Methods("POST")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws", s.handleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	in, err := s.decodeCreateBooking(r)
	if err != nil {
		respondFailed(w, err.Error())
		return
	}
	b, err := s.Booking.CreateBooking(r.Context(), user.ID, in)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondSuccess(w, "Booking created successfully", b)
}

// decodeCreateBooking accepts JSON or multipart. In the multipart case the
// issueImages file parts are spooled to the upload dir and their paths
// recorded on the booking.
func (s *Server) decodeCreateBooking(r *http.Request) (*models.CreateBookingInput, error) {
	in := &models.CreateBookingInput{}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, err
		}
		in.VehiclePlate = r.FormValue("vehiclePlateNumber")
		in.IssueDescription = r.FormValue("issueDescription")
		in.ProductsRequired = r.MultipartForm.Value["productsRequired"]
		if lat, err1 := strconv.ParseFloat(r.FormValue("lat"), 64); err1 == nil {
			if lon, err2 := strconv.ParseFloat(r.FormValue("lon"), 64); err2 == nil {
				in.Location = &models.Coord{Lat: lat, Lon: lon}
			}
		}
		for _, fh := range r.MultipartForm.File["issueImages"] {
			path, err := s.saveUpload(fh)
			if err != nil {
				return nil, err
			}
			in.IssueImages = append(in.IssueImages, path)
		}
		return in, nil
	}
	if err := json.NewDecoder(r.Body).Decode(in); err != nil {
		return nil, err
	}
	return in, nil
}

func (s *Server) saveUpload(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()
	if err := os.MkdirAll(s.UploadDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.UploadDir, uuid.NewString()+filepath.Ext(fh.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return "", err
	}
	return path, nil
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := s.Booking.ListBookingsFor(r.Context(), user, r.URL.Query().Get("status"), page, limit)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondSuccess(w, "Bookings", list)
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := s.Booking.GetBooking(r.Context(), mux.Vars(r)["bookingId"])
	if err != nil {
		respondFault(w, err)
		return
	}
	respondSuccess(w, "Success", b)
}

func (s *Server) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	b, err := s.Booking.CancelBooking(r.Context(), mux.Vars(r)["bookingId"])
	if err != nil {
		respondFault(w, err)
		return
	}
	respondSuccess(w, "Success", b)
}

func (s *Server) handleUpdateJobStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		respondFailed(w, "invalid body")
		return
	}
	b, err := s.Booking.UpdateJobStatus(r.Context(), mux.Vars(r)["bookingId"], body.Status)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondSuccess(w, "Success", b)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := s.Store.ListNotifications(r.Context(), user.ID, r.URL.Query().Get("status"), page, limit)
	if err != nil {
		respondFault(w, err)
		return
	}
	respondSuccess(w, "Notifications", list)
}

func (s *Server) handleMarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.MarkRead(r.Context(), mux.Vars(r)["notificationId"]); err != nil {
		respondFault(w, err)
		return
	}
	respondSuccess(w, "Success", nil)
}

// handleMechanicLocation is the ingest entry point: publish to kafka when
// wired, and apply to the geo index directly.
func (s *Server) handleMechanicLocation(w http.ResponseWriter, r *http.Request) {
	var u models.LocationUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		respondFailed(w, err.Error())
		return
	}
	if u.UserID == "" {
		respondFailed(w, "missing user_id")
		return
	}
	if s.Kafka != nil {
		if err := s.Kafka.PublishLocation(u); err != nil {
			s.logger.Warn("kafka publish failed", "user_id", u.UserID, "error", err)
		}
	}
	s.Booking.Geo.Upsert(geo.KindMechanics, u.UserID, u.Loc)
	w.WriteHeader(http.StatusNoContent)
}
