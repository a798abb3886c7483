// Package jobs defines the background jobs dispatched onto the queue.
// Register every job type in RegisterAll at boot so workers can
// deserialize them by name.
package jobs

import (
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/kgyan/makola/app/repositories"
	"github.com/kgyan/makola/config"
	"github.com/kgyan/makola/pkg/http"
	"github.com/kgyan/makola/pkg/logger"
	"github.com/kgyan/makola/pkg/mail"
	"github.com/kgyan/makola/pkg/queue"
)

// PaymentWebhookJob notifies the configured payment provider endpoint that
// a payment was initiated. The provider answers later through the confirm
// or fail callback.
type PaymentWebhookJob struct {
	PaymentID uint    `json:"payment_id"`
	Reference string  `json:"reference"`
	Amount    float64 `json:"amount"`
	Network   string  `json:"network"`
}

func (j PaymentWebhookJob) Handle() error {
	url := config.PaymentWebhookURL()
	if url == "" {
		logger.Debug("payment webhook skipped, no endpoint configured", "reference", j.Reference)
		return nil
	}

	resp, err := http.Post(url).
		Header("X-Service-Key", config.ServiceRoleKey()).
		Body(j).
		Timeout(10*time.Second).
		Retry(3, 2*time.Second).
		Send()
	if err != nil {
		return fmt.Errorf("payment webhook: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("payment webhook: provider returned %d", resp.StatusCode)
	}

	logger.Info("payment webhook delivered", "reference", j.Reference)
	return nil
}

// OrderReceiptJob emails a receipt once an order completes. Delivery is
// fire-and-forget; a failed receipt never blocks the order.
type OrderReceiptJob struct {
	OrderID uint    `json:"order_id"`
	Number  string  `json:"number"`
	Total   float64 `json:"total"`
}

func (j OrderReceiptJob) Handle() error {
	order, err := repositories.NewOrderRepository().FindByID(j.OrderID)
	if err != nil {
		return fmt.Errorf("receipt: load order %d: %w", j.OrderID, err)
	}
	consumer, err := repositories.NewUserRepository().FindByID(order.ConsumerID)
	if err != nil {
		return fmt.Errorf("receipt: load consumer %d: %w", order.ConsumerID, err)
	}

	var lines strings.Builder
	for _, it := range order.Items {
		fmt.Fprintf(&lines, "<tr><td>%s</td><td>%d × %.2f</td><td>%.2f</td></tr>",
			template.HTMLEscapeString(it.ProductName), it.Quantity, it.UnitPrice, it.LineTotal)
	}
	body := fmt.Sprintf(
		`<h2>Receipt for order %s</h2>
<table>%s</table>
<p>Subtotal: %.2f<br>Shopper fee: %.2f<br><strong>Total: %.2f</strong></p>`,
		order.Number, lines.String(), order.Subtotal, order.ShopperFee, order.Total)

	if err := mail.To(consumer.Email).
		Subject("Your Makola receipt for " + order.Number).
		Body(body).
		Send(); err != nil {
		// No mailer configured is a normal dev setup, not a job failure.
		logger.Warn("receipt mail not delivered", "order", order.Number, "error", err)
	}

	logger.Info("receipt issued", "order", order.Number, "total", order.Total)
	return nil
}

// RegisterAll wires every job type into the queue registry.
func RegisterAll() {
	queue.Register("jobs.PaymentWebhookJob", func() queue.Job { return &PaymentWebhookJob{} })
	queue.Register("jobs.OrderReceiptJob", func() queue.Job { return &OrderReceiptJob{} })
}
