package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pooltrack/config"
	. "pooltrack/internal/models"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/kolo/xmlrpc"
)

const (
	defaultOdooTimeout    = 30 * time.Second
	defaultJournalBoleta  = int64(39)
	defaultJournalFactura = int64(33)
	defaultJournalInvoice = "Documento Interno"
	defaultServiceName    = "Mantención de piscina"
)

// OdooService talks to an Odoo accounting instance over XML-RPC. It
// implements InvoiceService. A nil configuration leaves the service disabled
// and every call fails fast with ErrExternalService.
type OdooService struct {
	config config.Config
	log    logger.Logger

	common *xmlrpc.Client
	object *xmlrpc.Client

	mu  sync.Mutex
	uid int64
}

func NewOdooService(config config.Config) (*OdooService, error) {
	log := logger.New("OdooService")

	service := &OdooService{
		config: config,
		log:    log,
	}

	if config.OdooURL == "" {
		log.Info("Odoo backend not configured, invoicing disabled")
		return service, nil
	}

	common, err := xmlrpc.NewClient(config.OdooURL+"/xmlrpc/2/common", nil)
	if err != nil {
		return nil, log.Err("failed to create odoo common client", err)
	}
	object, err := xmlrpc.NewClient(config.OdooURL+"/xmlrpc/2/object", nil)
	if err != nil {
		return nil, log.Err("failed to create odoo object client", err)
	}

	service.common = common
	service.object = object

	log.Info("Odoo backend configured", "url", config.OdooURL, "database", config.OdooDatabase)
	return service, nil
}

func (s *OdooService) Enabled() bool {
	return s.object != nil
}

func (s *OdooService) timeout() time.Duration {
	if s.config.OdooTimeoutSeconds > 0 {
		return time.Duration(s.config.OdooTimeoutSeconds) * time.Second
	}
	return defaultOdooTimeout
}

// call runs an XML-RPC call bounded by ctx. The underlying client has no
// context support, so the call runs in a goroutine and the caller stops
// waiting when the context ends.
func (s *OdooService) call(
	ctx context.Context,
	client *xmlrpc.Client,
	method string,
	args []any,
	reply any,
) error {
	if client == nil {
		return fmt.Errorf("%w: odoo backend not configured", ErrExternalService)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- client.Call(method, args, reply)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: odoo call %s: %v", ErrExternalService, method, ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: odoo call %s: %v", ErrExternalService, method, err)
		}
		return nil
	}
}

func (s *OdooService) authenticate(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.uid != 0 {
		return s.uid, nil
	}

	log := s.log.Function("authenticate")

	var uid int64
	err := s.call(ctx, s.common, "authenticate", []any{
		s.config.OdooDatabase,
		s.config.OdooUsername,
		s.config.OdooPassword,
		map[string]any{},
	}, &uid)
	if err != nil {
		return 0, err
	}
	if uid == 0 {
		return 0, log.ErrMsg("odoo authentication rejected")
	}

	s.uid = uid
	log.Info("authenticated with odoo", "uid", uid)
	return uid, nil
}

func (s *OdooService) executeKw(
	ctx context.Context,
	model string,
	method string,
	args []any,
	kwargs map[string]any,
	reply any,
) error {
	uid, err := s.authenticate(ctx)
	if err != nil {
		return err
	}

	if kwargs == nil {
		kwargs = map[string]any{}
	}

	return s.call(ctx, s.object, "execute_kw", []any{
		s.config.OdooDatabase,
		uid,
		s.config.OdooPassword,
		model,
		method,
		args,
		kwargs,
	}, reply)
}

func (s *OdooService) searchFirst(
	ctx context.Context,
	model string,
	domain []any,
) (int64, error) {
	var ids []int64
	err := s.executeKw(ctx, model, "search", []any{domain}, map[string]any{"limit": 1}, &ids)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return ids[0], nil
}

// UpsertParty finds the partner matching the client, preferring tax id, then
// email, then name plus street, and creates one when nothing matches.
func (s *OdooService) UpsertParty(ctx context.Context, client *Client) (*PartyResult, error) {
	log := s.log.Function("UpsertParty")

	type lookup struct {
		domain []any
	}
	var lookups []lookup
	if client.TaxID != nil && *client.TaxID != "" {
		lookups = append(lookups, lookup{domain: []any{[]any{"vat", "=", *client.TaxID}}})
	}
	if client.Email != nil && *client.Email != "" {
		lookups = append(lookups, lookup{domain: []any{[]any{"email", "=", *client.Email}}})
	}
	if client.Address != nil && *client.Address != "" {
		lookups = append(lookups, lookup{domain: []any{
			[]any{"name", "=", client.Name},
			[]any{"street", "=", *client.Address},
		}})
	}

	for _, l := range lookups {
		id, err := s.searchFirst(ctx, "res.partner", l.domain)
		if err != nil {
			return nil, err
		}
		if id != 0 {
			return &PartyResult{PartnerID: id}, nil
		}
	}

	values := map[string]any{
		"name":          client.Name,
		"customer_rank": 1,
	}
	if client.TaxID != nil {
		values["vat"] = *client.TaxID
	}
	if client.Address != nil {
		values["street"] = *client.Address
	}
	if client.Commune != nil {
		values["city"] = *client.Commune
	}
	if client.Phone != nil {
		values["phone"] = *client.Phone
	}
	if client.Email != nil {
		values["email"] = *client.Email
	}

	var partnerID int64
	if err := s.executeKw(ctx, "res.partner", "create", []any{values}, nil, &partnerID); err != nil {
		return nil, err
	}

	log.Info("created odoo partner", "partnerID", partnerID, "client", client.Name)
	return &PartyResult{PartnerID: partnerID, Created: true}, nil
}

func (s *OdooService) journalFor(ctx context.Context, docType DocumentType) (int64, error) {
	switch docType {
	case DocumentBoleta:
		if s.config.OdooJournalBoleta != 0 {
			return s.config.OdooJournalBoleta, nil
		}
		return defaultJournalBoleta, nil
	case DocumentFactura:
		if s.config.OdooJournalFactura != 0 {
			return s.config.OdooJournalFactura, nil
		}
		return defaultJournalFactura, nil
	case DocumentInvoice:
		name := s.config.OdooJournalInvoice
		if name == "" {
			name = defaultJournalInvoice
		}
		id, err := s.searchFirst(ctx, "account.journal", []any{[]any{"name", "=", name}})
		if err != nil {
			return 0, err
		}
		if id == 0 {
			return 0, fmt.Errorf("%w: odoo journal %q not found", ErrExternalService, name)
		}
		return id, nil
	}
	return 0, fmt.Errorf("%w: unknown document type %q", ErrValidation, docType)
}

// productID resolves the service product, by configured id first, then by
// product name, falling back to the template's first variant.
func (s *OdooService) productID(ctx context.Context) (int64, error) {
	if s.config.OdooProductID != 0 {
		return s.config.OdooProductID, nil
	}

	name := s.config.OdooProductName
	if name == "" {
		return 0, nil
	}

	id, err := s.searchFirst(ctx, "product.product", []any{[]any{"name", "=", name}})
	if err != nil {
		return 0, err
	}
	if id != 0 {
		return id, nil
	}

	templateID, err := s.searchFirst(ctx, "product.template", []any{[]any{"name", "=", name}})
	if err != nil {
		return 0, err
	}
	if templateID == 0 {
		return 0, nil
	}

	return s.searchFirst(
		ctx,
		"product.product",
		[]any{[]any{"product_tmpl_id", "=", templateID}},
	)
}

func (s *OdooService) CreateInvoiceForVisit(
	ctx context.Context,
	client *Client,
	visit *Visit,
) (*InvoiceResult, error) {
	log := s.log.Function("CreateInvoiceForVisit")

	if client.Billing.PartnerID == nil {
		return nil, fmt.Errorf("%w: client %d has no accounting partner", ErrValidation, client.ID)
	}

	journalID, err := s.journalFor(ctx, client.Billing.DocumentType)
	if err != nil {
		return nil, err
	}

	serviceName := s.config.OdooServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	price, _ := visit.Price.Float64()
	line := map[string]any{
		"name":       fmt.Sprintf("%s %s", serviceName, FormatDate(visit.VisitDate)),
		"quantity":   1,
		"price_unit": price,
	}

	productID, err := s.productID(ctx)
	if err != nil {
		return nil, err
	}
	if productID != 0 {
		line["product_id"] = productID
	}

	move := map[string]any{
		"move_type":        "out_invoice",
		"partner_id":       *client.Billing.PartnerID,
		"journal_id":       journalID,
		"invoice_date":     FormatDate(visit.VisitDate),
		"invoice_line_ids": []any{[]any{0, 0, line}},
	}

	var moveID int64
	if err := s.executeKw(ctx, "account.move", "create", []any{move}, nil, &moveID); err != nil {
		return nil, err
	}

	// action_post has no meaningful return payload
	if err := s.executeKw(ctx, "account.move", "action_post", []any{[]int64{moveID}}, nil, nil); err != nil {
		return nil, err
	}

	status, err := s.GetPaymentState(ctx, moveID)
	if err != nil {
		return nil, err
	}

	log.Info(
		"issued odoo document",
		"moveID", moveID,
		"name", status.DisplayName,
		"visitID", visit.ID,
	)

	return &InvoiceResult{
		ExternalID:   moveID,
		DisplayName:  status.DisplayName,
		PaymentState: status.PaymentState,
	}, nil
}

func (s *OdooService) GetPaymentState(
	ctx context.Context,
	externalID int64,
) (*PaymentStatus, error) {
	var rows []map[string]any
	err := s.executeKw(
		ctx,
		"account.move",
		"read",
		[]any{[]int64{externalID}},
		map[string]any{"fields": []string{"name", "payment_state"}},
		&rows,
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: odoo document %d not found", ErrNotFound, externalID)
	}

	status := &PaymentStatus{ExternalID: externalID}
	if name, ok := rows[0]["name"].(string); ok {
		status.DisplayName = name
	}
	if state, ok := rows[0]["payment_state"].(string); ok {
		status.PaymentState = state
	}

	return status, nil
}
