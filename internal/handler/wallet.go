package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/alanwtom/carmodel/internal/middleware"
	"github.com/alanwtom/carmodel/internal/model"
)

// PaymentHistory is the read side of the payment record log.
type PaymentHistory interface {
	History(ctx context.Context, userID uint64) ([]model.PaymentRecord, error)
	NetSpend(ctx context.Context, userID uint64) (decimal.Decimal, error)
}

// WalletHandler serves the caller's wallet and payment history.
type WalletHandler struct {
	Wallets  WalletEnsurer
	Payments PaymentHistory
}

func NewWalletHandler(w WalletEnsurer, p PaymentHistory) *WalletHandler {
	if w == nil || p == nil {
		panic("nil dependency passed to NewWalletHandler")
	}
	return &WalletHandler{Wallets: w, Payments: p}
}

// GetWallet GET /v1/wallet returns the balance, opening the wallet on first use.
func (h *WalletHandler) GetWallet(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	w, err := h.Wallets.EnsureWallet(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":    w.UserID,
		"balance":    w.Balance.StringFixed(2),
		"updated_at": w.UpdatedAt,
	})
}

// ListPayments GET /v1/wallet/payments returns the caller's payment records,
// newest first, and the net amount spent.
func (h *WalletHandler) ListPayments(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	records, err := h.Payments.History(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	net, err := h.Payments.NetSpend(ctx, uid)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]paymentResp, 0, len(records))
	for _, p := range records {
		items = append(items, toPaymentResp(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "net_spend": net.StringFixed(2)})
}
