// Package api serves mixer status and controls over HTTP
package api

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/lixenwraith/rain-ambience/audio"
	"github.com/lixenwraith/rain-ambience/status"
)

// Controller is the mixer surface exposed over HTTP
type Controller interface {
	Toggle() bool
	ToggleMute() bool
	EnsurePlaying()
	Status() audio.Status
}

// StatusResponse is the body of GET /status
type StatusResponse struct {
	Playing          bool           `json:"playing"`
	Loaded           bool           `json:"loaded"`
	Muted            bool           `json:"muted"`
	CurrentRainTrack int            `json:"current_rain_track"`
	RainInstances    int            `json:"rain_instances"`
	RainVolume       float64        `json:"rain_volume"`
	ThunderVolume    float64        `json:"thunder_volume"`
	Session          string         `json:"session,omitempty"`
	Metrics          map[string]any `json:"metrics"`
}

// NewRouter builds the gin engine; origins enables CORS when non-empty
func NewRouter(ctrl Controller, registry *status.Registry, origins []string, startedAt time.Time) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Middleware: keep it lean
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithWriter(log.Writer()))
	if len(origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: origins,
			AllowMethods: []string{"GET", "POST"},
			AllowHeaders: []string{"Origin", "Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(startedAt).Round(time.Second).String(),
			"service": "rain-ambience",
		})
	})

	r.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, statusResponse(ctrl.Status(), registry))
	})

	r.POST("/toggle", func(c *gin.Context) {
		if !ctrl.Status().Loaded {
			c.JSON(http.StatusConflict, gin.H{"error": audio.ErrNotLoaded.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"playing": ctrl.Toggle()})
	})

	r.POST("/mute", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"muted": ctrl.ToggleMute()})
	})

	r.POST("/ensure", func(c *gin.Context) {
		ctrl.EnsurePlaying()
		c.JSON(http.StatusOK, statusResponse(ctrl.Status(), registry))
	})

	return r
}

func statusResponse(st audio.Status, registry *status.Registry) StatusResponse {
	resp := StatusResponse{
		Playing:          st.Playing,
		Loaded:           st.Loaded,
		Muted:            st.Muted,
		CurrentRainTrack: st.CurrentRainTrack,
		RainInstances:    st.Config.RainInstances,
		RainVolume:       st.Config.RainVolume,
		ThunderVolume:    st.Config.ThunderVolume,
		Session:          st.Session,
		Metrics:          map[string]any{},
	}
	if registry != nil {
		resp.Metrics = registry.Values()
	}
	return resp
}
