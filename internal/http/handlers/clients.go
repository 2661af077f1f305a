package handlers

import (
	"context"
	"time"

	"github.com/vietcms/moderation/internal/service"
)

// RegisterInput is the request body for POST /register.
type RegisterInput struct {
	Body struct {
		OrganizationName string `json:"organization_name" minLength:"1" maxLength:"255" doc:"Display name of the organization"`
		Email            string `json:"email" format:"email" doc:"Login and contact email, unique per tenant"`
		Password         string `json:"password" minLength:"8" maxLength:"128" doc:"Dashboard login password"`
		WebhookURL       string `json:"webhook_url,omitempty" maxLength:"2048" doc:"Endpoint for completion callbacks"`
	}
}

// RegisterData is returned exactly once; the API key and HMAC secret
// cannot be retrieved again.
type RegisterData struct {
	AppID      string    `json:"app_id"`
	APIKey     string    `json:"api_key"`
	HMACSecret string    `json:"hmac_secret"`
	WebhookURL string    `json:"webhook_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// RegisterOutput is the response for POST /register.
type RegisterOutput struct {
	Status int
	Body   Envelope[RegisterData]
}

// Register creates a tenant account.
func (h *Handlers) Register(ctx context.Context, input *RegisterInput) (*RegisterOutput, error) {
	client, creds, err := h.services.Client.Register(ctx, service.RegisterInput{
		OrganizationName: input.Body.OrganizationName,
		Email:            input.Body.Email,
		Password:         input.Body.Password,
		WebhookURL:       input.Body.WebhookURL,
	})
	if err != nil {
		return nil, serviceError(err)
	}

	return &RegisterOutput{
		Status: 201,
		Body: envelope(RegisterData{
			AppID:      creds.AppID,
			APIKey:     creds.APIKey,
			HMACSecret: creds.HMACSecret,
			WebhookURL: client.WebhookURL,
			CreatedAt:  client.CreatedAt,
		}),
	}, nil
}

// LoginInput is the request body for POST /client/login.
type LoginInput struct {
	Body struct {
		Email    string `json:"email" format:"email"`
		Password string `json:"password" minLength:"1"`
	}
}

// ClientProfile is the public view of a tenant account.
type ClientProfile struct {
	AppID            string `json:"app_id"`
	OrganizationName string `json:"organization_name"`
	Email            string `json:"email"`
	WebhookURL       string `json:"webhook_url"`
}

// LoginData carries the bearer token and the tenant profile.
type LoginData struct {
	Token  string        `json:"token"`
	Client ClientProfile `json:"client"`
}

// LoginOutput is the response for POST /client/login.
type LoginOutput struct {
	Body Envelope[LoginData]
}

// Login authenticates a tenant and issues a bearer token.
func (h *Handlers) Login(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	token, client, err := h.services.Client.Login(ctx, input.Body.Email, input.Body.Password)
	if err != nil {
		return nil, serviceError(err)
	}
	return &LoginOutput{
		Body: envelope(LoginData{
			Token: token,
			Client: ClientProfile{
				AppID:            client.AppID,
				OrganizationName: client.OrganizationName,
				Email:            client.Email,
				WebhookURL:       client.WebhookURL,
			},
		}),
	}, nil
}

// UpdateWebhookInput is the request body for PUT /webhook.
type UpdateWebhookInput struct {
	Body struct {
		WebhookURL string `json:"webhook_url" maxLength:"2048" doc:"New callback endpoint; empty disables delivery"`
	}
}

// UpdateWebhookData confirms the new callback endpoint.
type UpdateWebhookData struct {
	WebhookURL string    `json:"webhook_url"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// UpdateWebhookOutput is the response for PUT /webhook.
type UpdateWebhookOutput struct {
	Body Envelope[UpdateWebhookData]
}

// UpdateWebhook changes the tenant's callback endpoint. Served under both
// the API-key path and the bearer-token client portal path.
func (h *Handlers) UpdateWebhook(ctx context.Context, input *UpdateWebhookInput) (*UpdateWebhookOutput, error) {
	client, err := clientFrom(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.services.Client.UpdateWebhookURL(ctx, client.ID, input.Body.WebhookURL); err != nil {
		return nil, serviceError(err)
	}
	return &UpdateWebhookOutput{
		Body: envelope(UpdateWebhookData{
			WebhookURL: input.Body.WebhookURL,
			UpdatedAt:  time.Now().UTC(),
		}),
	}, nil
}
