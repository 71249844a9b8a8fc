package route

import (
	"net/http"
	"os"
	"path/filepath"

	"facecam/internal/config"
	"facecam/internal/handler"
	"facecam/internal/logger"
	"facecam/internal/middleware"
	"facecam/internal/repository"
	"facecam/internal/service/classifier"
	"facecam/internal/service/websocket"
)

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", filepath.Clean("/"+path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers the control surface, viewer, gallery, log and auth endpoints
// and wraps the mux with the authentication middleware.
func SetupRoutes(camera handler.CameraController, hub *websocket.HubService, cfg *config.Config, log *logger.Logger,
	imageRepo repository.ImageRepository, detectionRepo repository.DetectionRepository) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	// Camera control
	mux.HandleFunc("/api/camera/status", handler.CameraStatusHandler(camera, hub))
	mux.HandleFunc("/api/camera/start", handler.CameraActionHandler(camera, camera.Start, log))
	mux.HandleFunc("/api/camera/stop", handler.CameraActionHandler(camera, camera.Stop, log))
	mux.HandleFunc("/api/camera/toggle", handler.CameraActionHandler(camera, camera.Toggle, log))
	mux.HandleFunc("/api/camera/save", handler.SaveFrameHandler(camera, log))
	mux.HandleFunc("/api/classifier/haar", handler.SelectClassifierHandler(camera, classifier.Haar, log))
	mux.HandleFunc("/api/classifier/lbp", handler.SelectClassifierHandler(camera, classifier.LBP, log))

	// Viewer and gallery
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(hub, log))
	mux.HandleFunc("/api/pictures", handler.GetPicturesFromDBHandler(cfg, log, imageRepo, detectionRepo))
	mux.HandleFunc("/api/pictures/view", handler.ViewPictureHandler(cfg))

	// Log endpoints
	for name, file := range map[string]string{"info": logger.InfoFile, "warning": logger.WarningFile, "error": logger.ErrorFile} {
		mux.HandleFunc("/logs/"+name, handler.ShowLogsHandler(log, file))
		mux.HandleFunc("/logs/"+name+"/clear", handler.ClearLogsHandler(log, file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, log))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /gallery -> /static/gallery.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	return middleware.AuthMiddleware(mux)
}
