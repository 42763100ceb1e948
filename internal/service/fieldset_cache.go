// fieldset_cache.go — LRU-кэш публичных наборов полей вакансий с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
// Подача заявки кэш не читает: набор полей перечитывается в транзакции.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/bigkaa/recruitart/internal/domain/model"
)

// FieldSetCache — кэш набора полей по ID вакансии.
// Каждый экземпляр сервиса имеет собственный in-memory кэш.
type FieldSetCache struct {
	cache *expirable.LRU[int64, []*model.FieldDefinition]
}

// NewFieldSetCache создаёт кэш. size <= 0 — кэш отключён (nil).
func NewFieldSetCache(size int, ttl time.Duration) *FieldSetCache {
	if size <= 0 {
		return nil
	}
	return &FieldSetCache{
		cache: expirable.NewLRU[int64, []*model.FieldDefinition](size, nil, ttl),
	}
}

// Get возвращает набор полей вакансии. Безопасен для nil.
func (c *FieldSetCache) Get(jobID int64) ([]*model.FieldDefinition, bool) {
	if c == nil {
		return nil, false
	}
	fields, ok := c.cache.Get(jobID)
	if ok {
		fieldSetCacheHitsTotal.Inc()
		return fields, true
	}
	fieldSetCacheMissesTotal.Inc()
	return nil, false
}

// Set сохраняет набор полей вакансии.
func (c *FieldSetCache) Set(jobID int64, fields []*model.FieldDefinition) {
	if c == nil {
		return
	}
	c.cache.Add(jobID, fields)
}

// Invalidate удаляет набор полей вакансии (после любой мутации).
func (c *FieldSetCache) Invalidate(jobID int64) {
	if c == nil {
		return
	}
	c.cache.Remove(jobID)
}
