package services

import (
	"context"
	"time"

	"washbay/internal/domain"
	"washbay/internal/ports"
	"washbay/logging"
)

// releaseBox frees the box a session just left
func releaseBox(ctx context.Context, repo ports.Repository, boxID, sessionID string, now time.Time) (*domain.Box, error) {
	box, err := repo.GetBox(ctx, boxID)
	if err != nil {
		return nil, err
	}
	if err := box.Release(sessionID, now); err != nil {
		return nil, err
	}
	if err := repo.UpdateBox(ctx, box); err != nil {
		return nil, err
	}
	return box, nil
}

// expireSession moves one live session to expired and frees its box
func expireSession(ctx context.Context, repo ports.Repository, s *domain.Session, actor domain.Actor, now time.Time) error {
	from := s.Status
	boxID := s.BoxID
	if err := s.Expire(now); err != nil {
		return err
	}
	if err := repo.UpdateSession(ctx, s); err != nil {
		return err
	}
	if boxID != nil {
		if _, err := releaseBox(ctx, repo, *boxID, s.ID, now); err != nil {
			return err
		}
	}
	return record(ctx, repo, now, actor, domain.EventSessionExpired, &s.ID, boxID, map[string]any{
		"from": string(from),
	})
}

// expireOverdue expires every live session whose rental or assignment
// window has run out. It returns the ids of expired sessions.
func expireOverdue(ctx context.Context, repo ports.Repository, assignTimeout time.Duration, now time.Time) ([]string, error) {
	live, err := repo.ListSessions(ctx, domain.SessionFilter{Statuses: domain.LiveStatuses})
	if err != nil {
		return nil, err
	}

	var expired []string
	for i := range live {
		s := &live[i]
		if !domain.IsOverdue(s, assignTimeout, now) {
			continue
		}
		boxID := ptrValue(s.BoxID)
		if err := expireSession(ctx, repo, s, domain.SystemActor, now); err != nil {
			return nil, err
		}
		logging.Logger.Info("Session expired", "session_id", s.ID, "box_id", boxID)
		expired = append(expired, s.ID)
	}
	return expired, nil
}

func ptrValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
