package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/salon-crm/internal/auth"
	"github.com/kursadbilgin/salon-crm/internal/domain"
	"github.com/kursadbilgin/salon-crm/internal/repository"
	"github.com/kursadbilgin/salon-crm/internal/service"
)

// CampaignDispatcher creates and sends campaigns. DispatchService implements it.
type CampaignDispatcher interface {
	Initiate(ctx context.Context, tenantID string, req service.CampaignRequest) (*domain.Campaign, domain.DispatchResult, error)
	Prepare(ctx context.Context, tenantID string, req service.CampaignRequest, scheduledAt *time.Time) (*domain.Campaign, int, error)
	SendCampaign(ctx context.Context, tenantID string, campaignID string) (domain.DispatchResult, error)
}

type CampaignReader interface {
	Get(ctx context.Context, tenantID string, id string) (*domain.Campaign, error)
	List(ctx context.Context, tenantID string, params repository.CampaignListParams) ([]domain.Campaign, int64, error)
}

type StatsReader interface {
	Aggregate(ctx context.Context, tenantID string, campaignID string) (domain.CampaignStats, error)
}

type CampaignHandler struct {
	dispatcher CampaignDispatcher
	campaigns  CampaignReader
	stats      StatsReader
}

func NewCampaignHandler(dispatcher CampaignDispatcher, campaigns CampaignReader, stats StatsReader) (*CampaignHandler, error) {
	if dispatcher == nil || campaigns == nil || stats == nil {
		return nil, fmt.Errorf("campaign dispatcher, reader and stats are required")
	}
	return &CampaignHandler{
		dispatcher: dispatcher,
		campaigns:  campaigns,
		stats:      stats,
	}, nil
}

func RegisterCampaignRoutes(
	router fiber.Router,
	verifier auth.Verifier,
	dispatcher CampaignDispatcher,
	campaigns CampaignReader,
	stats StatsReader,
) error {
	if verifier == nil {
		return fmt.Errorf("session verifier is required")
	}
	h, err := NewCampaignHandler(dispatcher, campaigns, stats)
	if err != nil {
		return err
	}

	ownerOnly := auth.RequireRole(domain.RoleOwner)

	g := router.Group("/v1/campaigns", auth.RequireSession(verifier))
	g.Post("/", ownerOnly, h.InitiateCampaign)
	g.Post("/drafts", ownerOnly, h.CreateDraft)
	g.Post("/scheduled", ownerOnly, h.ScheduleCampaign)
	g.Post("/:id/send", ownerOnly, h.SendCampaign)
	g.Get("/", h.ListCampaigns)
	g.Get("/:id", h.GetCampaign)
	g.Get("/:id/stats", h.GetCampaignStats)

	return nil
}

type selectionRuleRequest struct {
	Kind         string   `json:"kind" validate:"required"`
	InactiveDays int      `json:"inactiveDays" validate:"omitempty,min=1,max=3650"`
	CustomerIDs  []string `json:"customerIds" validate:"omitempty,max=1000"`
}

type createCampaignRequest struct {
	Name    string               `json:"name" validate:"max=200"`
	Message string               `json:"message" validate:"required,max=480"`
	Rule    selectionRuleRequest `json:"rule"`
}

type scheduleCampaignRequest struct {
	createCampaignRequest
	ScheduledAt *time.Time `json:"scheduledAt" validate:"required"`
}

type campaignResponse struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Message     string     `json:"message"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	ScheduledAt *time.Time `json:"scheduledAt,omitempty"`
	SentAt      *time.Time `json:"sentAt,omitempty"`
	CreatedBy   *string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type dispatchResultResponse struct {
	CampaignID string `json:"campaignId"`
	Status     string `json:"status"`
	Total      int    `json:"total"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
	Unrecorded int    `json:"unrecorded,omitempty"`
}

type initiateCampaignResponse struct {
	Campaign campaignResponse       `json:"campaign"`
	Result   dispatchResultResponse `json:"result"`
}

type preparedCampaignResponse struct {
	Campaign   campaignResponse `json:"campaign"`
	Recipients int              `json:"recipients"`
}

type listCampaignsResponse struct {
	Data []campaignResponse `json:"data"`
	Meta listMeta           `json:"meta"`
}

type campaignStatsResponse struct {
	CampaignID string `json:"campaignId"`
	Total      int    `json:"total"`
	Sent       int    `json:"sent"`
	Delivered  int    `json:"delivered"`
	Opened     int    `json:"opened"`
	Failed     int    `json:"failed"`
	Pending    int    `json:"pending"`
}

// InitiateCampaign resolves recipients and sends immediately. The response carries sent and
// failed counts even when every recipient failed.
func (h *CampaignHandler) InitiateCampaign(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	var req createCampaignRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	campaignReq, err := toCampaignRequest(req, identity)
	if err != nil {
		return err
	}

	campaign, result, err := h.dispatcher.Initiate(requestContext(c), identity.TenantID, campaignReq)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(initiateCampaignResponse{
		Campaign: toCampaignResponse(campaign),
		Result:   toDispatchResultResponse(result),
	})
}

func (h *CampaignHandler) CreateDraft(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	var req createCampaignRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	campaignReq, err := toCampaignRequest(req, identity)
	if err != nil {
		return err
	}

	campaign, recipients, err := h.dispatcher.Prepare(requestContext(c), identity.TenantID, campaignReq, nil)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(preparedCampaignResponse{
		Campaign:   toCampaignResponse(campaign),
		Recipients: recipients,
	})
}

func (h *CampaignHandler) ScheduleCampaign(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	var req scheduleCampaignRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	campaignReq, err := toCampaignRequest(req.createCampaignRequest, identity)
	if err != nil {
		return err
	}

	scheduledAt := req.ScheduledAt.UTC()
	campaign, recipients, err := h.dispatcher.Prepare(requestContext(c), identity.TenantID, campaignReq, &scheduledAt)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(preparedCampaignResponse{
		Campaign:   toCampaignResponse(campaign),
		Recipients: recipients,
	})
}

func (h *CampaignHandler) SendCampaign(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	result, err := h.dispatcher.SendCampaign(requestContext(c), identity.TenantID, strings.TrimSpace(c.Params("id")))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(toDispatchResultResponse(result))
}

func (h *CampaignHandler) ListCampaigns(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	page, pageSize, err := parsePage(c)
	if err != nil {
		return err
	}
	params := repository.CampaignListParams{Page: page, PageSize: pageSize}
	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseCampaignStatusFromString(rawStatus)
		if err != nil {
			return err
		}
		params.Status = &status
	}

	campaigns, total, err := h.campaigns.List(requestContext(c), identity.TenantID, params)
	if err != nil {
		return err
	}

	data := make([]campaignResponse, 0, len(campaigns))
	for i := range campaigns {
		data = append(data, toCampaignResponse(&campaigns[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listCampaignsResponse{
		Data: data,
		Meta: listMeta{Page: page, PageSize: pageSize, Total: total},
	})
}

func (h *CampaignHandler) GetCampaign(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	campaign, err := h.campaigns.Get(requestContext(c), identity.TenantID, strings.TrimSpace(c.Params("id")))
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(toCampaignResponse(campaign))
}

func (h *CampaignHandler) GetCampaignStats(c *fiber.Ctx) error {
	identity, err := requireIdentity(c)
	if err != nil {
		return err
	}

	campaignID := strings.TrimSpace(c.Params("id"))
	stats, err := h.stats.Aggregate(requestContext(c), identity.TenantID, campaignID)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(campaignStatsResponse{
		CampaignID: campaignID,
		Total:      stats.Total,
		Sent:       stats.Sent,
		Delivered:  stats.Delivered,
		Opened:     stats.Opened,
		Failed:     stats.Failed,
		Pending:    stats.Pending,
	})
}

func toCampaignRequest(req createCampaignRequest, identity domain.Identity) (service.CampaignRequest, error) {
	kind, err := domain.ParseSelectionKindFromString(req.Rule.Kind)
	if err != nil {
		return service.CampaignRequest{}, err
	}

	createdBy := identity.UserID
	return service.CampaignRequest{
		Name:    strings.TrimSpace(req.Name),
		Message: req.Message,
		Type:    domain.CampaignTypeManual,
		Rule: domain.SelectionRule{
			Kind:         kind,
			InactiveDays: req.Rule.InactiveDays,
			CustomerIDs:  req.Rule.CustomerIDs,
		},
		CreatedBy: &createdBy,
	}, nil
}

func toCampaignResponse(c *domain.Campaign) campaignResponse {
	if c == nil {
		return campaignResponse{}
	}

	return campaignResponse{
		ID:          c.ID,
		Name:        c.Name,
		Message:     c.Message,
		Type:        c.Type.String(),
		Status:      c.Status.String(),
		ScheduledAt: c.ScheduledAt,
		SentAt:      c.SentAt,
		CreatedBy:   c.CreatedBy,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toDispatchResultResponse(r domain.DispatchResult) dispatchResultResponse {
	return dispatchResultResponse{
		CampaignID: r.CampaignID,
		Status:     r.Status.String(),
		Total:      r.Total,
		Sent:       r.Sent,
		Failed:     r.Failed,
		Unrecorded: r.Unrecorded,
	}
}
