package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"storyloom-backend/internal/models"
	"storyloom-backend/internal/upstream"
)

const metaCacheTTL = time.Hour

// MetaHandler serves the server-enumerated vocabularies (themes, age
// groups, languages). They change rarely, so each passes through a Redis
// cache; a cold cache falls through to the Generation Service.
type MetaHandler struct {
	generation *upstream.GenerationClient
	redis      *redis.Client
}

func NewMetaHandler(generation *upstream.GenerationClient, redisClient *redis.Client) *MetaHandler {
	return &MetaHandler{generation: generation, redis: redisClient}
}

func (h *MetaHandler) Themes(w http.ResponseWriter, r *http.Request) {
	var themes []string
	err := h.cached(r.Context(), "meta:themes", &themes, func(ctx context.Context) (interface{}, error) {
		return h.generation.Themes(ctx)
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"themes": themes})
}

func (h *MetaHandler) AgeGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.ageGroups(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ageGroups": groups})
}

func (h *MetaHandler) Languages(w http.ResponseWriter, r *http.Request) {
	var languages map[string]string
	err := h.cached(r.Context(), "meta:languages", &languages, func(ctx context.Context) (interface{}, error) {
		return h.generation.Languages(ctx)
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"languages": languages})
}

// ageGroups is shared with the generate endpoint, which validates requests
// against the enumeration.
func (h *MetaHandler) ageGroups(ctx context.Context) (map[string]models.AgeGroupInfo, error) {
	var groups map[string]models.AgeGroupInfo
	err := h.cached(ctx, "meta:age_groups", &groups, func(ctx context.Context) (interface{}, error) {
		return h.generation.AgeGroups(ctx)
	})
	return groups, err
}

// cached reads through the Redis cache. Cache failures are ignored; the
// upstream answer still flows.
func (h *MetaHandler) cached(ctx context.Context, key string, out interface{}, fetch func(context.Context) (interface{}, error)) error {
	if data, err := h.redis.Get(ctx, key).Result(); err == nil {
		if json.Unmarshal([]byte(data), out) == nil {
			return nil
		}
	}

	value, err := fetch(ctx)
	if err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	h.redis.Set(ctx, key, string(data), metaCacheTTL)
	return json.Unmarshal(data, out)
}
