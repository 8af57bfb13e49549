package websocketPkg

import (
	"DrowsinessMonitor/internal/entity"
	"errors"
	"fmt"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"os"
	"sync"
	"time"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var ErrNotConfigured = errors.New("FACE_MESH_WS_URL not configured")

// ILandmarkProvider sends camera frames to the face mesh service and returns
// the landmarks it found.
type ILandmarkProvider interface {
	ProcessFrame(frame []byte) (*entity.LandmarkResult, error)
	IsConnected() bool
	Reconnect() error
	Close()
}

type faceMeshClient struct {
	url          string
	conn         *websocket.Conn
	mu           sync.Mutex
	log          *logrus.Logger
	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewFaceMeshClient(log *logrus.Logger) ILandmarkProvider {
	client := &faceMeshClient{
		url:          os.Getenv("FACE_MESH_WS_URL"),
		log:          log,
		pingInterval: 30 * time.Second,
		readTimeout:  10 * time.Second,
		writeTimeout: 5 * time.Second,
	}

	go client.connectInBackground()

	return client
}

func (c *faceMeshClient) connectInBackground() {
	if err := c.Reconnect(); err != nil {
		c.log.Warnf("Initial connection to face mesh service failed: %v. Will retry on demand.", err)
		return
	}
	c.log.Info("Connected to face mesh service")
}

func (c *faceMeshClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *faceMeshClient) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}

	if c.url == "" {
		return ErrNotConfigured
	}

	c.log.Debugf("Connecting to face mesh service at %s", c.url)

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		if err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout)); err != nil {
			c.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	c.conn = conn
	go c.keepAlive(conn)

	return nil
}

func (c *faceMeshClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *faceMeshClient) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		if c.conn != conn {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.Warnf("Ping failed for face mesh service, marking connection as dead: %v", err)
			c.conn = nil
			conn.Close()
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()
	}
}

// dropLocked forgets conn if it is still the active connection.
func (c *faceMeshClient) dropLocked(conn *websocket.Conn) {
	if c.conn == conn {
		c.conn = nil
	}
	conn.Close()
}

// ProcessFrame holds the client lock for the whole round trip so replies
// cannot be matched to the wrong frame.
func (c *faceMeshClient) ProcessFrame(frame []byte) (*entity.LandmarkResult, error) {
	if !c.IsConnected() {
		if err := c.Reconnect(); err != nil {
			return nil, fmt.Errorf("cannot connect to face mesh service: %w", err)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	conn := c.conn
	if conn == nil {
		return nil, errors.New("not connected to face mesh service")
	}

	conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		c.dropLocked(conn)
		return nil, fmt.Errorf("error sending frame: %w", err)
	}

	conn.SetReadDeadline(time.Now().Add(c.readTimeout))
	_, message, err := conn.ReadMessage()
	if err != nil {
		c.dropLocked(conn)
		return nil, fmt.Errorf("error reading landmarks: %w", err)
	}

	conn.SetReadDeadline(time.Time{})
	conn.SetWriteDeadline(time.Time{})

	var result entity.LandmarkResult
	if err := json.Unmarshal(message, &result); err != nil {
		return nil, fmt.Errorf("error unmarshaling landmarks: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("face mesh service: %s", result.Error)
	}
	if !result.FaceDetected {
		result.Landmarks = nil
	}

	c.log.WithFields(logrus.Fields{
		"frame_bytes":   len(frame),
		"face_detected": result.FaceDetected,
		"landmarks":     len(result.Landmarks),
	}).Debug("Face mesh result")

	return &result, nil
}
