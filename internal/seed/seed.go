// Package seed loads demo tenants, brokers and clients for local environments.
// Every step looks its row up first, so running it on each boot is safe.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/mywill/internal/auth/domain"
	"github.com/smallbiznis/mywill/internal/auth/password"
	clientdomain "github.com/smallbiznis/mywill/internal/client/domain"
	"github.com/smallbiznis/mywill/internal/config"
	notedomain "github.com/smallbiznis/mywill/internal/note/domain"
	pricingdomain "github.com/smallbiznis/mywill/internal/pricing/domain"
	taskdomain "github.com/smallbiznis/mywill/internal/task/domain"
	tenantdomain "github.com/smallbiznis/mywill/internal/tenant/domain"
	willdomain "github.com/smallbiznis/mywill/internal/will/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PlatformAdminEmail    = "admin@platform.co.uk"
	platformAdminPassword = "admin123"
	brokerPassword        = "test1234"
)

type Options struct {
	GenID   *snowflake.Node
	Pricing config.DefaultPricing
	Log     *zap.Logger
	Now     func() time.Time
}

type tenantSeed struct {
	name        string
	slug        string
	brokerEmail string
	brokerName  string
	pricing     *config.DefaultPricing
	clients     []clientSeed
}

type clientSeed struct {
	client  clientdomain.Client
	dob     string
	note    string
	task    string
	payload *willdomain.Payload
}

func tenants() []tenantSeed {
	return []tenantSeed{
		{
			name:        "Alder Advisors",
			slug:        "alder-advisors",
			brokerEmail: "broker@alder.co.uk",
			brokerName:  "Alder Broker",
			clients: []clientSeed{
				{
					client: clientdomain.Client{
						FirstName: "John", LastName: "Smith", Email: "john.smith@example.com",
						Phone: "+44 20 7123 4567", AddressLine1: "123 High Street", City: "London", Postcode: "SW1A 1AA",
					},
					dob:  "1975-06-15",
					note: "Initial consultation completed. Client wishes to leave everything to spouse.",
					task: "Collect witness signatures",
					payload: &willdomain.Payload{
						PersonalInfo: &willdomain.PersonalInfo{
							FullName:    "John Smith",
							DateOfBirth: "1975-06-15",
							Address:     &willdomain.Address{Line1: "123 High Street", City: "London", Postcode: "SW1A 1AA", Country: "UK"},
						},
						Executors:     []willdomain.Executor{{FullName: "Sarah Smith", Relationship: "Wife", Address: "123 High Street, London, SW1A 1AA"}},
						Beneficiaries: []willdomain.Beneficiary{{Name: "Sarah Smith", Relationship: "Wife", Share: 100}},
						Guardianship:  &willdomain.Guardianship{},
						Residue:       &willdomain.Residue{DistributionType: "To surviving spouse"},
					},
				},
				{
					client: clientdomain.Client{
						FirstName: "Sarah", LastName: "Johnson", Email: "sarah.johnson@example.com",
						Phone: "+44 161 123 4567", AddressLine1: "456 Oak Avenue", City: "Manchester", Postcode: "M1 1AA",
					},
					dob:  "1982-03-22",
					note: "Client requires mirror will for both spouses. Complex estate planning needed.",
					task: "Schedule consultation for spouse",
				},
			},
		},
		{
			name:        "Birch Planning",
			slug:        "birch-planning",
			brokerEmail: "broker@birch.co.uk",
			brokerName:  "Birch Broker",
			pricing: &config.DefaultPricing{
				SingleWillPrice:      22000,
				MirrorWillPrice:      38000,
				TrustWillPrice:       80000,
				RevenueSplitBroker:   85,
				RevenueSplitPlatform: 15,
			},
			clients: []clientSeed{
				{
					client: clientdomain.Client{
						FirstName: "Michael", LastName: "Brown", Email: "michael.brown@example.com",
						Phone: "+44 121 123 4567", AddressLine1: "789 Elm Road", City: "Birmingham", Postcode: "B1 1AA",
					},
					dob: "1970-09-10",
				},
			},
		},
	}
}

// Run seeds the platform admin and demo tenants.
func Run(ctx context.Context, db *gorm.DB, opts Options) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if opts.GenID == nil {
		return errors.New("seed id generator is required")
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	log := opts.Log.Named("seed")

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ensureUser(ctx, tx, opts, nil, PlatformAdminEmail, "Platform Admin", platformAdminPassword, authdomain.RolePlatformAdmin); err != nil {
			return err
		}

		for _, ts := range tenants() {
			tenant, err := ensureTenant(ctx, tx, opts, ts.name, ts.slug)
			if err != nil {
				return err
			}
			broker, err := ensureUser(ctx, tx, opts, &tenant.ID, ts.brokerEmail, ts.brokerName, brokerPassword, authdomain.RoleBroker)
			if err != nil {
				return err
			}
			pricing := opts.Pricing
			if ts.pricing != nil {
				pricing = *ts.pricing
			}
			if err := ensurePricing(ctx, tx, opts, tenant.ID, pricing); err != nil {
				return err
			}
			for _, cs := range ts.clients {
				if err := ensureClient(ctx, tx, opts, tenant.ID, broker.ID, cs); err != nil {
					return err
				}
			}
			log.Info("tenant seeded", zap.String("tenant", tenant.Slug))
		}
		return nil
	})
}

func ensureTenant(ctx context.Context, tx *gorm.DB, opts Options, name, slug string) (tenantdomain.Tenant, error) {
	var tenant tenantdomain.Tenant
	err := tx.WithContext(ctx).Where("slug = ?", slug).First(&tenant).Error
	if err == nil {
		return tenant, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return tenant, err
	}
	now := opts.Now()
	tenant = tenantdomain.Tenant{
		ID:        opts.GenID.Generate(),
		Name:      name,
		Slug:      slug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&tenant).Error; err != nil {
		return tenant, err
	}
	return tenant, nil
}

func ensureUser(ctx context.Context, tx *gorm.DB, opts Options, tenantID *snowflake.ID, email, name, rawPassword string, role authdomain.Role) (authdomain.User, error) {
	email = strings.ToLower(email)
	var user authdomain.User
	err := tx.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return user, err
	}
	hashed, err := password.Hash(rawPassword)
	if err != nil {
		return user, err
	}
	now := opts.Now()
	user = authdomain.User{
		ID:           opts.GenID.Generate(),
		TenantID:     tenantID,
		Email:        email,
		Name:         name,
		PasswordHash: hashed,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
		return user, err
	}
	return user, nil
}

func ensurePricing(ctx context.Context, tx *gorm.DB, opts Options, tenantID snowflake.ID, p config.DefaultPricing) error {
	var existing pricingdomain.Pricing
	err := tx.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	now := opts.Now()
	return tx.WithContext(ctx).Create(&pricingdomain.Pricing{
		ID:                   opts.GenID.Generate(),
		TenantID:             tenantID,
		SingleWillPrice:      p.SingleWillPrice,
		MirrorWillPrice:      p.MirrorWillPrice,
		TrustWillPrice:       p.TrustWillPrice,
		RevenueSplitBroker:   p.RevenueSplitBroker,
		RevenueSplitPlatform: p.RevenueSplitPlatform,
		Currency:             pricingdomain.DefaultCurrency,
		CreatedAt:            now,
		UpdatedAt:            now,
	}).Error
}

// ensureClient creates the client with its note, task and draft will. An
// existing client is left untouched together with its children.
func ensureClient(ctx context.Context, tx *gorm.DB, opts Options, tenantID, brokerID snowflake.ID, cs clientSeed) error {
	var existing clientdomain.Client
	err := tx.WithContext(ctx).
		Where("tenant_id = ? AND email = ?", tenantID, cs.client.Email).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := opts.Now()
	client := cs.client
	client.ID = opts.GenID.Generate()
	client.TenantID = tenantID
	client.Country = "UK"
	client.Status = "active"
	client.CreatedAt = now
	client.UpdatedAt = now
	if cs.dob != "" {
		dob, err := time.Parse(time.DateOnly, cs.dob)
		if err != nil {
			return err
		}
		client.DateOfBirth = &dob
	}
	if err := tx.WithContext(ctx).Create(&client).Error; err != nil {
		return err
	}

	if cs.note != "" {
		if err := tx.WithContext(ctx).Create(&notedomain.Note{
			ID:        opts.GenID.Generate(),
			TenantID:  tenantID,
			ClientID:  client.ID,
			AuthorID:  &brokerID,
			Content:   cs.note,
			Type:      "general",
			CreatedAt: now,
		}).Error; err != nil {
			return err
		}
	}

	if cs.task != "" {
		if err := tx.WithContext(ctx).Create(&taskdomain.Task{
			ID:         opts.GenID.Generate(),
			TenantID:   tenantID,
			ClientID:   client.ID,
			AssigneeID: &brokerID,
			Title:      cs.task,
			Priority:   "medium",
			Status:     "pending",
			CreatedAt:  now,
			UpdatedAt:  now,
		}).Error; err != nil {
			return err
		}
	}

	if cs.payload != nil {
		if err := tx.WithContext(ctx).Create(&willdomain.Will{
			ID:            opts.GenID.Generate(),
			TenantID:      tenantID,
			ClientID:      client.ID,
			Status:        willdomain.StatusDraft,
			Version:       1,
			JSONPayload:   datatypes.NewJSONType(*cs.payload),
			DraftMarkdown: willdomain.GenerateMarkdown(client.FullName(), *cs.payload),
			CreatedAt:     now,
			UpdatedAt:     now,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}
