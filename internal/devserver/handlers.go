package devserver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const ownerKey = "owner"

type chalRequest struct {
	ChallengeID *int `json:"chal_id"`
}

type badRequest string

func (e badRequest) Error() string { return string(e) }

func (s *Server) requireCSRF(c *fiber.Ctx) error {
	if s.cfg.CSRFToken == "" || c.Get("CSRF-Token") == s.cfg.CSRFToken {
		return c.Next()
	}
	s.logger.Warn("rejected call with bad csrf token", "path", c.Path())
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"message": "CSRF token invalid",
	})
}

func (s *Server) resolveOwner(c *fiber.Ctx) error {
	// fiber reuses request buffers, so the cookie value is copied before it
	// is kept as a map key.
	owner := strings.Clone(c.Cookies("session"))
	if owner == "" {
		owner = anonymousOwner
	}
	c.Locals(ownerKey, owner)
	return c.Next()
}

func ownerOf(c *fiber.Ctx) string {
	if owner, ok := c.Locals(ownerKey).(string); ok {
		return owner
	}
	return anonymousOwner
}

// challengeID parses and checks the chal_id of a call.
func (s *Server) challengeID(c *fiber.Ctx) (int, error) {
	var req chalRequest
	if err := c.BodyParser(&req); err != nil {
		return 0, badRequest("Invalid request body")
	}
	if req.ChallengeID == nil {
		return 0, badRequest("Missing required field: chal_id")
	}
	id := *req.ChallengeID
	if id <= 0 {
		return 0, badRequest("Challenge not found")
	}
	if s.challenges != nil {
		if _, ok := s.challenges[id]; !ok {
			return 0, badRequest("Challenge not found")
		}
	}
	return id, nil
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func (s *Server) runningReply(inst *instance, status string) fiber.Map {
	return fiber.Map{
		"status":   status,
		"hostname": s.cfg.Hostname,
		"port":     strconv.Itoa(inst.Port),
		"connect":  s.cfg.Connect,
		"expires":  inst.Expires,
	}
}

func (s *Server) lookup(owner string, id int) *instance {
	return s.containers[owner][id]
}

func (s *Server) handleView(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.challengeID(c)
	if err != nil {
		return s.fail(c, err)
	}
	s.reapLocked()

	inst := s.lookup(ownerOf(c), id)
	if inst == nil {
		return c.JSON(fiber.Map{"status": "Challenge not started"})
	}
	return c.JSON(s.runningReply(inst, "already_running"))
}

func (s *Server) handleRequest(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.challengeID(c)
	if err != nil {
		return s.fail(c, err)
	}
	s.reapLocked()

	owner := ownerOf(c)
	if len(s.containers[owner]) >= s.cfg.MaxContainers {
		return s.fail(c, badRequest(fmt.Sprintf(
			"Max containers (%d) reached. Please stop a running container before starting a new one.",
			s.cfg.MaxContainers)))
	}

	if inst := s.lookup(owner, id); inst != nil {
		return c.JSON(s.runningReply(inst, "already_running"))
	}

	inst := &instance{
		ID:      uuid.NewString(),
		Port:    s.nextPort,
		Expires: s.now().Add(s.cfg.Expiration()).Unix(),
	}
	s.nextPort++

	if s.containers[owner] == nil {
		s.containers[owner] = make(map[int]*instance)
	}
	s.containers[owner][id] = inst

	s.logger.WithChallenge(id).Info("container created", "owner", owner, "container_id", inst.ID, "port", inst.Port)
	return c.JSON(s.runningReply(inst, "created"))
}

func (s *Server) handleRenew(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.challengeID(c)
	if err != nil {
		return s.fail(c, err)
	}
	s.reapLocked()

	inst := s.lookup(ownerOf(c), id)
	if inst == nil {
		return c.JSON(fiber.Map{"error": "Container not found, try resetting the container."})
	}
	inst.Expires = s.now().Add(s.cfg.Expiration()).Unix()

	s.logger.WithChallenge(id).Info("container renewed", "container_id", inst.ID, "expires", inst.Expires)
	return c.JSON(fiber.Map{
		"success":  "Container renewed",
		"expires":  inst.Expires,
		"hostname": s.cfg.Hostname,
		"port":     strconv.Itoa(inst.Port),
		"connect":  s.cfg.Connect,
	})
}

func (s *Server) handleStop(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.challengeID(c)
	if err != nil {
		return s.fail(c, err)
	}
	s.reapLocked()

	owner := ownerOf(c)
	inst := s.lookup(owner, id)
	if inst == nil {
		return s.fail(c, badRequest("No container found"))
	}
	delete(s.containers[owner], id)
	if len(s.containers[owner]) == 0 {
		delete(s.containers, owner)
	}

	s.logger.WithChallenge(id).Info("container killed", "container_id", inst.ID)
	return c.JSON(fiber.Map{"success": "Container killed"})
}
