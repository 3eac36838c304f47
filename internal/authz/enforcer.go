// Gathermap - Group Location Sharing Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/gathermap

package authz

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/tomtom215/gathermap/internal/cache"
	"github.com/tomtom215/gathermap/internal/models"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Group roles, strongest first.
const (
	RoleOwner  = "owner"
	RoleLeader = "leader"
	RoleMember = "member"
)

// Objects.
const (
	ObjGroup        = "group"
	ObjMember       = "member"
	ObjSchedule     = "schedule"
	ObjLocation     = "location"
	ObjNotification = "notification"
)

// Actions.
const (
	ActRead   = "read"
	ActWrite  = "write"
	ActDelete = "delete"
	ActManage = "manage"
)

// ErrForbidden is returned by Authorize when the role lacks the permission.
var ErrForbidden = errors.New("forbidden")

// DefaultCacheTTL is how long decisions are cached. The policy is embedded
// and immutable, so this only bounds memory.
const DefaultCacheTTL = 10 * time.Minute

// Enforcer wraps the Casbin enforcer with a decision cache.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
	cache    *cache.Cache[bool]
}

// NewEnforcer creates an enforcer over the embedded group role policy.
// A non-positive cacheTTL uses DefaultCacheTTL.
func NewEnforcer(cacheTTL time.Duration) (*Enforcer, error) {
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}

	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := loadEmbeddedPolicy(enforcer, embeddedPolicy); err != nil {
		return nil, err
	}

	return &Enforcer{
		enforcer: enforcer,
		cache:    cache.New[bool](cacheTTL),
	}, nil
}

// loadEmbeddedPolicy parses and loads the embedded policy CSV.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		ptype, rule := parts[0], parts[1:]
		switch {
		case ptype == "p" && len(rule) == 3:
			if _, err := enforcer.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", rule, err)
			}
		case ptype == "g" && len(rule) == 2:
			if _, err := enforcer.AddGroupingPolicy(rule[0], rule[1]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", rule, err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// Enforce checks if role can perform action on object.
func (e *Enforcer) Enforce(role, object, action string) (bool, error) {
	start := time.Now()
	key := role + ":" + object + ":" + action

	if allowed, ok := e.cache.Get(key); ok {
		RecordAuthzDecision(role, object, action, allowed, true, time.Since(start))
		return allowed, nil
	}

	allowed, err := e.enforcer.Enforce(role, object, action)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}

	e.cache.Set(key, allowed)
	RecordAuthzDecision(role, object, action, allowed, false, time.Since(start))
	return allowed, nil
}

// Can is Enforce with errors treated as a denial.
func (e *Enforcer) Can(role, object, action string) bool {
	allowed, err := e.Enforce(role, object, action)
	return err == nil && allowed
}

// Authorize returns ErrForbidden unless gm's role allows action on object.
// A nil or departed membership is always forbidden.
func (e *Enforcer) Authorize(gm *models.GroupMember, object, action string) error {
	if gm == nil || !gm.Active() {
		return ErrForbidden
	}
	if !e.Can(RoleOf(gm), object, action) {
		return fmt.Errorf("%w: %s cannot %s %s", ErrForbidden, RoleOf(gm), action, object)
	}
	return nil
}

// Roles returns the roles role inherits, including itself.
func (e *Enforcer) Roles(role string) []string {
	implicit, err := e.enforcer.GetImplicitRolesForUser(role)
	if err != nil {
		return []string{role}
	}
	return append([]string{role}, implicit...)
}

// Close stops the decision cache sweeper.
func (e *Enforcer) Close() {
	e.cache.Close()
}

// RoleOf maps the membership flags to a role. The owner flag wins over the
// leader flag.
func RoleOf(gm *models.GroupMember) string {
	switch {
	case gm.OwnerCheck.Bool():
		return RoleOwner
	case gm.LeaderCheck.Bool():
		return RoleLeader
	default:
		return RoleMember
	}
}
