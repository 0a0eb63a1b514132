package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	authdomain "github.com/smallbiznis/mywill/internal/auth/domain"
	"github.com/smallbiznis/mywill/internal/errs"
	"github.com/smallbiznis/mywill/internal/observability/logger"
	"github.com/smallbiznis/mywill/internal/tenantcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectClient    = "client"
	ObjectNote      = "note"
	ObjectTask      = "task"
	ObjectWill      = "will"
	ObjectDocument  = "document"
	ObjectPricing   = "pricing"
	ObjectDashboard = "dashboard"
	ObjectAnalytics = "analytics"
	ObjectTenant    = "tenant"
	ObjectBroker    = "broker"
	ObjectAuditLog  = "audit_log"
)

const (
	ActionRead  = "read"
	ActionWrite = "write"
)

const platformDomain = "platform"

var (
	ErrInvalidActor = errs.New(errs.KindUnauthorized, "invalid_actor")
	ErrForbidden    = errs.New(errs.KindForbidden, "permission_denied")
)

type Service interface {
	Authorize(ctx context.Context, principal tenantcontext.Principal, object string, action string) error
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

// Authorize checks principal's role for object/action within its tenant domain.
// Principals without a tenant are evaluated in the platform domain.
func (s *ServiceImpl) Authorize(ctx context.Context, principal tenantcontext.Principal, object string, action string) error {
	if principal.UserID == 0 || !principal.Role.Valid() {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	action = strings.TrimSpace(action)
	if object == "" || action == "" {
		return ErrForbidden
	}

	subject := fmt.Sprintf("user:%s", principal.UserID)
	domain := domainFor(principal)
	if err := s.ensureGrouping(subject, roleName(principal.Role), domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		logger.WithContext(ctx, s.log).Warn("authorization denied",
			zap.String("subject", subject),
			zap.String("domain", domain),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping keeps exactly one role link per subject and domain, replacing
// stale links after a role change.
func (s *ServiceImpl) ensureGrouping(subject string, role string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == role {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, role, domain)
	if err != nil || has {
		return err
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, role, domain)
	return err
}

func domainFor(p tenantcontext.Principal) string {
	if p.TenantID == nil || *p.TenantID == 0 {
		return platformDomain
	}
	return fmt.Sprintf("tenant:%s", *p.TenantID)
}

func roleName(r authdomain.Role) string {
	return "role:" + r.String()
}

type grant struct {
	object  string
	actions []string
}

// grants lists what each role adds on top of the roles ranked below it.
var grants = map[authdomain.Role][]grant{
	authdomain.RoleBroker: {
		{ObjectClient, []string{ActionRead, ActionWrite}},
		{ObjectNote, []string{ActionRead, ActionWrite}},
		{ObjectTask, []string{ActionRead, ActionWrite}},
		{ObjectWill, []string{ActionRead, ActionWrite}},
		{ObjectDocument, []string{ActionRead}},
		{ObjectAnalytics, []string{ActionRead, ActionWrite}},
		{ObjectDashboard, []string{ActionRead}},
		{ObjectPricing, []string{ActionRead}},
	},
	authdomain.RoleBrokerAdmin: {
		{ObjectPricing, []string{ActionWrite}},
	},
	authdomain.RolePlatformAdmin: {
		{ObjectTenant, []string{ActionRead, ActionWrite}},
		{ObjectBroker, []string{ActionRead, ActionWrite}},
		{ObjectAuditLog, []string{ActionRead}},
	},
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	for _, role := range authdomain.Roles() {
		for _, inherited := range authdomain.Roles() {
			if !role.AtLeast(inherited) {
				continue
			}
			for _, g := range grants[inherited] {
				for _, action := range g.actions {
					has, err := enforcer.HasPolicy(roleName(role), g.object, action)
					if err != nil {
						return err
					}
					if has {
						continue
					}
					if _, err := enforcer.AddPolicy(roleName(role), g.object, action); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}
