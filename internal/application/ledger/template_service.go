package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/propmgr/ledger/internal/domain/ledger"
	"github.com/propmgr/ledger/internal/domain/shared"
	"github.com/propmgr/ledger/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ChartInitLock serializes chart initialization per tenant
type ChartInitLock interface {
	// TryLock acquires the tenant's lock without waiting; false means another holder has it
	TryLock(ctx context.Context, tenantID uuid.UUID) (bool, error)
	Unlock(ctx context.Context, tenantID uuid.UUID) error
}

// TemplateCatalog is the read-only set of chart templates
type TemplateCatalog interface {
	// Get returns the template, or a NotFoundError
	Get(name, jurisdiction string) (*ledger.ChartTemplateDefinition, error)
	List() []*ledger.ChartTemplateDefinition
}

// TemplateService seeds an empty chart of accounts from a template
type TemplateService struct {
	hooks
	accountRepo ledger.GLAccountRepository
	txScope     TransactionScope
	catalog     TemplateCatalog
	lock        ChartInitLock
}

// NewTemplateService creates a new TemplateService
func NewTemplateService(
	accountRepo ledger.GLAccountRepository,
	txScope TransactionScope,
	catalog TemplateCatalog,
	lock ChartInitLock,
	logger *zap.Logger,
) *TemplateService {
	return &TemplateService{
		hooks:       newHooks(logger),
		accountRepo: accountRepo,
		txScope:     txScope,
		catalog:     catalog,
		lock:        lock,
	}
}

// Initialize creates the tenant's chart from the named template.
// It fails if the tenant already has any account. Accounts are created unparented first
// and wired to their parents in a second pass, all in one store transaction.
func (s *TemplateService) Initialize(ctx context.Context, tenantID uuid.UUID, templateName, jurisdiction string) (*InitializeChartResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "template", "initialize")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrTemplate, templateName,
		telemetry.SpanAttrJurisdiction, jurisdiction,
	)

	resp, err := s.initialize(ctx, tenantID, templateName, jurisdiction)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, "accounts_created", resp.AccountsCreated)
	return resp, nil
}

func (s *TemplateService) initialize(ctx context.Context, tenantID uuid.UUID, templateName, jurisdiction string) (*InitializeChartResponse, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_TENANT", "Tenant ID is required")
	}
	if err := s.ensureEmpty(ctx, s.accountRepo, tenantID); err != nil {
		return nil, err
	}

	def, err := s.catalog.Get(templateName, jurisdiction)
	if err != nil {
		return nil, err
	}
	if err := def.Validate(); err != nil {
		s.logger.Error("Chart template is invalid",
			zap.String("template", def.Key()),
			zap.Error(err))
		return nil, err
	}

	if s.lock != nil {
		acquired, err := s.lock.TryLock(ctx, tenantID)
		if err != nil {
			return nil, fmt.Errorf("acquire chart init lock: %w", err)
		}
		if !acquired {
			return nil, shared.NewTemplateError("INITIALIZATION_IN_PROGRESS",
				"The chart of accounts is already being initialized for this business")
		}
		defer func() {
			if err := s.lock.Unlock(ctx, tenantID); err != nil {
				s.logger.Warn("Failed to release chart init lock",
					zap.String("tenant_id", tenantID.String()),
					zap.Error(err))
			}
		}()
	}

	var created []*ledger.GLAccount
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		accounts := repos.AccountRepo()
		if err := s.ensureEmpty(ctx, accounts, tenantID); err != nil {
			return err
		}

		created, err = def.NewAccounts(tenantID)
		if err != nil {
			return err
		}
		if err := accounts.Create(ctx, created...); err != nil {
			if errors.Is(err, shared.ErrValidation) {
				// A concurrent writer got there between the check and the insert
				return alreadyInitialized()
			}
			return err
		}

		byNumber := make(map[string]*ledger.GLAccount, len(created))
		for _, a := range created {
			byNumber[a.AccountNumber] = a
		}
		for child, parentNumber := range def.ParentNumbers() {
			account := byNumber[child]
			parent := byNumber[parentNumber]
			loaded := account.Version
			if err := account.MoveTo(&parent.ID); err != nil {
				return err
			}
			if err := accounts.SaveWithLock(ctx, account, loaded); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// One chart event replaces the per-account events
	for _, a := range created {
		a.ClearDomainEvents()
	}
	s.logger.Info("Chart of accounts initialized",
		zap.String("tenant_id", tenantID.String()),
		zap.String("template", def.Key()),
		zap.Int("accounts", len(created)))
	s.metrics.RecordAccountsCreated(ctx, tenantID, len(created))
	s.metrics.RecordChartInitialized(ctx, tenantID, def.Name)
	s.publishEvents(ctx, ledger.NewChartOfAccountsInitializedEvent(tenantID, def.Name, def.Jurisdiction, len(created)))

	return &InitializeChartResponse{
		TemplateName:    def.Name,
		Jurisdiction:    def.Jurisdiction,
		AccountsCreated: len(created),
	}, nil
}

// HasChartOfAccounts reports whether the tenant has any account
func (s *TemplateService) HasChartOfAccounts(ctx context.Context, tenantID uuid.UUID) (bool, error) {
	return s.accountRepo.ExistsForTenant(ctx, tenantID)
}

// ListTemplates describes every template in the catalog
func (s *TemplateService) ListTemplates() []ChartTemplateSummary {
	defs := s.catalog.List()
	out := make([]ChartTemplateSummary, len(defs))
	for i, d := range defs {
		out[i] = ChartTemplateSummary{
			Name:         d.Name,
			Jurisdiction: d.Jurisdiction,
			Description:  d.Description,
			AccountCount: len(d.Entries),
		}
	}
	return out
}

func (s *TemplateService) ensureEmpty(ctx context.Context, repo ledger.GLAccountRepository, tenantID uuid.UUID) error {
	exists, err := repo.ExistsForTenant(ctx, tenantID)
	if err != nil {
		return err
	}
	if exists {
		return alreadyInitialized()
	}
	return nil
}

// alreadyInitialized is a TEMPLATE error (the template cannot be applied) that also matches
// shared.ErrState, since a second initialization is refused by the tenant's current state.
func alreadyInitialized() error {
	err := shared.NewTemplateError("CHART_ALREADY_INITIALIZED", "The business already has a chart of accounts")
	err.AlsoKind = shared.KindState
	return err
}
