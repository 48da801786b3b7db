package projects

import (
	"context"
	"encoding/json"
	"errors"
	"math"

	"helpmate-backend/internal/domain"
	"helpmate-backend/internal/infrastructure/cache"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Stats aggregates a set of projects.
type Stats struct {
	Total           int                          `json:"total"`
	ByStatus        map[domain.ProjectStatus]int `json:"by_status"`
	ByPriority      map[domain.Priority]int      `json:"by_priority"`
	TotalVolunteers int                          `json:"total_volunteers"`
	TotalHours      float64                      `json:"total_hours"`
	AverageProgress int                          `json:"average_progress"`
	TotalDonations  float64                      `json:"total_donations"`
}

// ComputeStats aggregates projects. AverageProgress is the rounded mean of
// each project's recomputed progress.
func ComputeStats(list []domain.Project) Stats {
	st := Stats{
		Total: len(list),
		ByStatus: map[domain.ProjectStatus]int{
			domain.ProjectPlanned: 0, domain.ProjectActive: 0,
			domain.ProjectCompleted: 0, domain.ProjectCancelled: 0,
		},
		ByPriority: map[domain.Priority]int{
			domain.PriorityLow: 0, domain.PriorityMedium: 0, domain.PriorityHigh: 0,
		},
	}
	progress := 0
	for i := range list {
		p := &list[i]
		st.ByStatus[p.Status]++
		st.ByPriority[p.Priority]++
		st.TotalVolunteers += p.CurrentVolunteers
		st.TotalHours += p.TotalHours
		st.TotalDonations += p.TotalDonations
		progress += domain.RecomputeProgress(p.CompletedTasks, p.TotalTasks)
	}
	if len(list) > 0 {
		st.AverageProgress = int(math.Floor(float64(progress)/float64(len(list)) + 0.5))
	}
	return st
}

func statsKey(organizerID *uuid.UUID) string {
	if organizerID == nil {
		return cache.StatsPrefix + "all"
	}
	return cache.StatsPrefix + "org:" + organizerID.String()
}

// Stats returns statistics over all projects, or one organizer's. Results
// are cached until the TTL passes or a project write invalidates them.
func (s *Service) Stats(ctx context.Context, organizerID *uuid.UUID) (*Stats, error) {
	key := statsKey(organizerID)
	if s.Cache != nil {
		b, err := s.Cache.Get(ctx, key)
		if err == nil {
			var st Stats
			if json.Unmarshal(b, &st) == nil {
				return &st, nil
			}
		} else if !errors.Is(err, cache.ErrMiss) {
			log.Warn().Err(err).Str("key", key).Msg("stats cache read failed")
		}
	}

	list, err := s.Store.ListProjects(ctx, domain.ProjectFilter{OrganizerID: organizerID})
	if err != nil {
		return nil, err
	}
	st := ComputeStats(list)

	if s.Cache != nil && s.StatsTTL > 0 {
		if b, err := json.Marshal(st); err == nil {
			if err := s.Cache.Set(ctx, key, b, s.StatsTTL); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("stats cache write failed")
			}
		}
	}
	return &st, nil
}
