package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"donationScope/internal/cashfree"
)

type donorDetails struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type orderNotes struct {
	Note        string `json:"note"`
	Description string `json:"description"`
}

type createOrderRequest struct {
	Amount        json.RawMessage `json:"amount"`
	OrderAmount   json.RawMessage `json:"order_amount"`
	Currency      string          `json:"currency"`
	OrderCurrency string          `json:"order_currency"`
	OrderID       string          `json:"order_id"`
	Donor         donorDetails    `json:"donor"`
	Notes         orderNotes      `json:"notes"`
}

type verifyOrderRequest struct {
	OrderID string `json:"order_id"`
}

// CreateOrder validates a donation and opens a Cashfree order for it.
func (a *App) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	raw := req.Amount
	if isJSONNull(raw) {
		raw = req.OrderAmount
	}
	amount, ok := parseAmount(raw)
	if !ok || amount <= 0 {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "Invalid amount"})
		return
	}
	currency := req.Currency
	if currency == "" {
		currency = req.OrderCurrency
	}
	if currency == "" {
		currency = "INR"
	}
	if strings.ToUpper(currency) != "INR" {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "Currency must be INR"})
		return
	}
	amount = cashfree.Round2(amount)

	if a.Cashfree == nil || !a.Cashfree.Configured() {
		a.Logger.Error("cashfree credentials missing", zap.String("module", "cf-create-order"))
		a.json(w, http.StatusInternalServerError, map[string]string{"error": "Server not configured"})
		return
	}
	env := cashfree.OrderEnvironment(a.Cashfree.ConfiguredEnv())

	orderID := req.OrderID
	if orderID == "" {
		orderID = cashfree.NewOrderID(a.Now())
	}
	phone := cashfree.SanitizePhone(req.Donor.Phone)
	if phone == "" {
		a.error(w, http.StatusBadRequest, "customer_phone_required", "Phone number is required to start payment.")
		return
	}
	customerID := req.Donor.ID
	if customerID == "" {
		customerID = "cust_" + orderID
	}
	note := req.Notes.Note
	if note == "" {
		note = req.Notes.Description
	}
	if note == "" {
		note = "Donation"
	}

	order, err := a.Cashfree.CreateOrder(r.Context(), env, cashfree.OrderRequest{
		OrderID:       orderID,
		OrderAmount:   amount,
		OrderCurrency: "INR",
		CustomerDetails: cashfree.CustomerDetails{
			CustomerID:    customerID,
			CustomerEmail: cashfree.SanitizeEmail(req.Donor.Email),
			CustomerPhone: phone,
		},
		OrderNote: cashfree.Truncate(note, 120),
	})
	if err != nil {
		var upstream *cashfree.UpstreamError
		if errors.As(err, &upstream) {
			a.json(w, http.StatusBadGateway, map[string]any{"error": "Cashfree order failed", "status": upstream.Status, "detail": upstream.Detail()})
			return
		}
		a.Logger.Error("create order failed", zap.String("module", "cf-create-order"), zap.String("order_id", orderID), zap.Error(err))
		a.json(w, http.StatusInternalServerError, map[string]string{"error": "Server error"})
		return
	}

	a.Logger.Info("cashfree order created",
		zap.String("module", "cf-create-order"),
		zap.String("order_id", orderID),
		zap.String("env", string(env)),
		zap.Float64("amount", amount),
		zap.String("currency", "INR"),
	)
	if order.OrderID != "" {
		orderID = order.OrderID
	}
	a.json(w, http.StatusOK, map[string]any{
		"mode":               env.Mode(),
		"order_id":           orderID,
		"payment_session_id": order.PaymentSessionID,
		"order":              order.Raw,
	})
}

// VerifyOrder reports whether an order has been paid.
func (a *App) VerifyOrder(w http.ResponseWriter, r *http.Request) {
	var req verifyOrderRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	orderID := strings.TrimSpace(req.OrderID)
	if orderID == "" {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "order_id_required"})
		return
	}

	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	configured := ""
	if a.Cashfree != nil {
		configured = a.Cashfree.ConfiguredEnv()
	}
	env := cashfree.VerifyEnvironment(configured, host)

	if a.Cashfree == nil || !a.Cashfree.Configured() {
		missingID, missingSecret := true, true
		if a.Cashfree != nil {
			missingID, missingSecret = a.Cashfree.Missing()
		}
		a.Logger.Error("cashfree credentials missing", zap.String("module", "cf-verify-order"), zap.String("order_id", orderID))
		a.json(w, http.StatusInternalServerError, map[string]any{
			"error": "server_not_configured",
			"detail": map[string]any{
				"missing_client_id": missingID,
				"missing_secret":    missingSecret,
				"env":               env,
			},
		})
		return
	}

	order, err := a.Cashfree.GetOrder(r.Context(), env, orderID)
	if err != nil {
		var upstream *cashfree.UpstreamError
		if errors.As(err, &upstream) {
			a.json(w, http.StatusBadGateway, map[string]any{"error": "provider_error", "status": upstream.Status, "detail": upstream.Detail()})
			return
		}
		a.Logger.Error("verify order failed", zap.String("module", "cf-verify-order"), zap.String("order_id", orderID), zap.Error(err))
		a.json(w, http.StatusInternalServerError, map[string]string{"error": "server_error"})
		return
	}

	status := strings.ToUpper(order.OrderStatus)
	verified := status == "PAID"
	a.Logger.Info("cashfree order verified",
		zap.String("module", "cf-verify-order"),
		zap.String("order_id", orderID),
		zap.String("env", string(env)),
		zap.String("status", status),
		zap.Bool("verified", verified),
	)
	a.json(w, http.StatusOK, map[string]any{
		"verified": verified,
		"status":   status,
		"amount":   order.OrderAmount,
		"currency": order.OrderCurrency,
		"order":    order.Raw,
	})
}

type webhookPayload struct {
	Type        string   `json:"type"`
	Event       string   `json:"event"`
	OrderID     string   `json:"order_id"`
	OrderStatus string   `json:"order_status"`
	OrderAmount *float64 `json:"order_amount"`
	Currency    string   `json:"order_currency"`
	Data        struct {
		Order struct {
			OrderID     string   `json:"order_id"`
			OrderStatus string   `json:"order_status"`
			OrderAmount *float64 `json:"order_amount"`
			Currency    string   `json:"order_currency"`
		} `json:"order"`
	} `json:"data"`
}

// Webhook accepts signed payment notifications.
func (a *App) Webhook(w http.ResponseWriter, r *http.Request) {
	if a.WebhookSecret == "" {
		a.Logger.Error("cashfree webhook secret missing", zap.String("module", "cf-webhook"))
		a.text(w, http.StatusInternalServerError, "Server not configured")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		a.text(w, http.StatusBadRequest, "Invalid body")
		return
	}
	signature := r.Header.Get("x-webhook-signature")
	if signature == "" {
		a.Logger.Warn("missing webhook signature", zap.String("module", "cf-webhook"))
		a.text(w, http.StatusBadRequest, "Missing signature")
		return
	}
	if !cashfree.VerifySignature(body, signature, a.WebhookSecret) {
		a.Logger.Warn("invalid webhook signature", zap.String("module", "cf-webhook"))
		a.text(w, http.StatusBadRequest, "Invalid signature")
		return
	}

	var payload webhookPayload
	if len(body) > 0 {
		if err := json.Unmarshal(body, &payload); err != nil {
			a.Logger.Warn("invalid webhook payload", zap.String("module", "cf-webhook"))
			a.text(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
	}

	fields := []zap.Field{zap.String("module", "cf-webhook"), zap.Bool("verified", true)}
	fields = appendNonEmpty(fields, "order_id", firstNonEmpty(payload.Data.Order.OrderID, payload.OrderID))
	fields = appendNonEmpty(fields, "event", firstNonEmpty(payload.Type, payload.Event))
	fields = appendNonEmpty(fields, "status", firstNonEmpty(payload.Data.Order.OrderStatus, payload.OrderStatus))
	fields = appendNonEmpty(fields, "currency", firstNonEmpty(payload.Data.Order.Currency, payload.Currency))
	if amount := payload.Data.Order.OrderAmount; amount != nil {
		fields = append(fields, zap.Float64("amount", *amount))
	} else if payload.OrderAmount != nil {
		fields = append(fields, zap.Float64("amount", *payload.OrderAmount))
	}
	a.Logger.Info("cashfree webhook", fields...)

	a.text(w, http.StatusOK, "ok")
}

func decodeOptionalJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	return json.Unmarshal(body, v)
}

func isJSONNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

// parseAmount accepts a JSON number or a numeric string.
func parseAmount(raw json.RawMessage) (float64, bool) {
	if isJSONNull(raw) {
		return 0, false
	}
	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number, true
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return 0, false
	}
	number, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(number) || math.IsInf(number, 0) {
		return 0, false
	}
	return number, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func appendNonEmpty(fields []zap.Field, key, value string) []zap.Field {
	if value == "" {
		return fields
	}
	return append(fields, zap.String(key, value))
}
