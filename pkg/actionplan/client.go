package actionplan

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/healthvault/sdk/pkg/hverror"
	"github.com/healthvault/sdk/pkg/transport"
)

const basePath = "/v3/actionplans"

// Client provides action plan CRUD for one record.
type Client struct {
	rest     *transport.RESTClient
	recordID uuid.UUID
}

// NewClient creates an action plan client scoped to recordID.
func NewClient(rest *transport.RESTClient, recordID uuid.UUID) *Client {
	return &Client{rest: rest, recordID: recordID}
}

type planPage struct {
	Plans []Plan `json:"plans"`
}

// List fetches every plan assigned to the record.
func (c *Client) List(ctx context.Context) ([]Plan, error) {
	var page planPage
	if err := c.rest.DoJSON(ctx, http.MethodGet, basePath, nil, nil, &page, &c.recordID); err != nil {
		return nil, fmt.Errorf("list action plans: %w", err)
	}
	return page.Plans, nil
}

// Get fetches one plan by id.
func (c *Client) Get(ctx context.Context, planID uuid.UUID) (*Plan, error) {
	if planID == uuid.Nil {
		return nil, hverror.Validationf("plan id is required")
	}
	var plan Plan
	if err := c.rest.DoJSON(ctx, http.MethodGet, basePath+"/"+planID.String(), nil, nil, &plan, &c.recordID); err != nil {
		return nil, fmt.Errorf("get action plan: %w", err)
	}
	return &plan, nil
}

// Create stores a new plan and returns it with the server-assigned id.
func (c *Client) Create(ctx context.Context, plan *Plan) (*Plan, error) {
	if plan == nil || plan.Name == "" {
		return nil, hverror.Validationf("plan name is required")
	}
	var created Plan
	if err := c.rest.DoJSON(ctx, http.MethodPost, basePath, nil, plan, &created, &c.recordID); err != nil {
		return nil, fmt.Errorf("create action plan: %w", err)
	}
	return &created, nil
}

// Update replaces an existing plan.
func (c *Client) Update(ctx context.Context, plan *Plan) (*Plan, error) {
	if plan == nil || plan.ID == uuid.Nil {
		return nil, hverror.Validationf("plan id is required for update")
	}
	var updated Plan
	if err := c.rest.DoJSON(ctx, http.MethodPut, basePath+"/"+plan.ID.String(), nil, plan, &updated, &c.recordID); err != nil {
		return nil, fmt.Errorf("update action plan: %w", err)
	}
	return &updated, nil
}

// Delete removes a plan by id.
func (c *Client) Delete(ctx context.Context, planID uuid.UUID) error {
	if planID == uuid.Nil {
		return hverror.Validationf("plan id is required")
	}
	if err := c.rest.DoJSON(ctx, http.MethodDelete, basePath+"/"+planID.String(), nil, nil, nil, &c.recordID); err != nil {
		return fmt.Errorf("delete action plan: %w", err)
	}
	return nil
}
