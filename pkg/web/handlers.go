package web

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-facemesh/pkg/facemesh"
	"github.com/teslashibe/go-facemesh/pkg/hub"
	"github.com/teslashibe/go-facemesh/pkg/landmark"
)

var errNoSession = fiber.NewError(fiber.StatusServiceUnavailable, "session not attached")

// handleStatus returns the session status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	ctrl := s.getController()
	if ctrl == nil {
		return errNoSession
	}
	return c.JSON(fiber.Map{
		"session": ctrl.Status(),
		"streams": fiber.Map{
			"video":      s.videoHub.Stats(),
			"pointcloud": s.cloudHub.Stats(),
		},
	})
}

// handleGetConfig returns the render state
func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	ctrl := s.getController()
	if ctrl == nil {
		return errNoSession
	}
	return c.JSON(ctrl.RenderState())
}

// handlePutConfig applies a partial render state change
func (s *Server) handlePutConfig(c *fiber.Ctx) error {
	ctrl := s.getController()
	if ctrl == nil {
		return errNoSession
	}

	var params map[string]any
	if err := json.Unmarshal(c.Body(), &params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid JSON body",
		})
	}

	rs, err := ctrl.UpdateRenderState(params)
	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, facemesh.ErrInvalidRenderState) {
			status = fiber.StatusBadRequest
		}
		return c.Status(status).JSON(fiber.Map{
			"error":        err.Error(),
			"render_state": rs,
		})
	}
	return c.JSON(rs)
}

// handleBackends lists the selectable compute backends
func (s *Server) handleBackends(c *fiber.Ctx) error {
	return c.JSON(landmark.Backends())
}

// handleVideoWS streams annotated JPEG frames
func (s *Server) handleVideoWS(c *websocket.Conn) {
	hub.Serve(s.videoHub, c)
}

// handlePointCloudWS streams point cloud datasets
func (s *Server) handlePointCloudWS(c *websocket.Conn) {
	hub.Serve(s.cloudHub, c)
}
