package shoppinglist

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/catalogo-api/internal/financing"
)

// ErrIncompleteAddress is returned when shipping is requested without a full address.
var ErrIncompleteAddress = errors.New("shoppinglist: delivery address incomplete")

// ErrEmptyList is returned when an enquiry is built for a list with no items.
var ErrEmptyList = errors.New("shoppinglist: list is empty")

// Address is a delivery address.
type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
}

// Complete reports whether every field is filled in.
func (a Address) Complete() bool {
	return strings.TrimSpace(a.Street) != "" && strings.TrimSpace(a.City) != "" && strings.TrimSpace(a.PostalCode) != ""
}

// Delivery describes how the order is handed over. Without Shipping the
// buyer picks it up at the store.
type Delivery struct {
	Shipping    bool               `json:"shipping"`
	SameAddress bool               `json:"sameAddress"`
	Address     Address            `json:"address"`
	PerItem     map[string]Address `json:"perItem,omitempty"`
}

// Validate checks that every address the enquiry needs is complete.
func (d Delivery) Validate(state State) error {
	if !d.Shipping {
		return nil
	}
	if d.SameAddress {
		if !d.Address.Complete() {
			return ErrIncompleteAddress
		}
		return nil
	}
	for _, it := range state.Items {
		if !d.PerItem[it.Key()].Complete() {
			return fmt.Errorf("%s: %w", it.Key(), ErrIncompleteAddress)
		}
	}
	return nil
}

// EnquiryLine is one item of an enquiry.
type EnquiryLine struct {
	Number   int    `json:"number"`
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
	Category string `json:"category,omitempty"`
	Brand    string `json:"brand,omitempty"`
	Payment  string `json:"payment,omitempty"`
	Address  string `json:"address,omitempty"`
}

// Enquiry is the order request sent to the seller.
type Enquiry struct {
	Title    string        `json:"title"`
	Lines    []EnquiryLine `json:"lines"`
	Shipping []string      `json:"shipping"`
}

// BuildEnquiry assembles the enquiry for state and delivery.
func BuildEnquiry(state State, delivery Delivery) (Enquiry, error) {
	if state.Count() == 0 {
		return Enquiry{}, ErrEmptyList
	}
	if err := delivery.Validate(state); err != nil {
		return Enquiry{}, err
	}

	enq := Enquiry{Title: listTitle(state.Count()), Lines: make([]EnquiryLine, 0, state.Count())}
	for i, it := range state.Items {
		key := it.Key()
		line := EnquiryLine{
			Number:   i + 1,
			Title:    it.Title,
			Quantity: state.Quantity(key),
			Category: it.Category,
			Brand:    it.Brand,
		}
		if line.Title == "" {
			line.Title = "Producto"
		}
		if plan, ok := state.SelectedPlans[key]; ok {
			line.Payment = paymentText(plan)
		}
		if delivery.Shipping && !delivery.SameAddress {
			addr := delivery.PerItem[key]
			line.Address = fmt.Sprintf("%s, %s, CP: %s", addr.Street, addr.City, addr.PostalCode)
		}
		enq.Lines = append(enq.Lines, line)
	}

	switch {
	case !delivery.Shipping:
		enq.Shipping = []string{"Retiro en el local"}
	case delivery.SameAddress:
		enq.Shipping = []string{
			"Solicito envío a:",
			"Dirección: " + delivery.Address.Street,
			"Localidad: " + delivery.Address.City,
			"Código Postal: " + delivery.Address.PostalCode,
		}
	default:
		enq.Shipping = []string{"Solicito envío (las direcciones están indicadas por producto arriba)"}
	}
	return enq, nil
}

// Text renders the enquiry as the message body sent to the seller.
func (e Enquiry) Text() string {
	blocks := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		var b strings.Builder
		fmt.Fprintf(&b, "%d. %s", l.Number, l.Title)
		if l.Quantity > 1 {
			fmt.Fprintf(&b, " (Cantidad: %d)", l.Quantity)
		}
		if l.Category != "" {
			b.WriteString("\n   Categoría: " + l.Category)
		}
		if l.Brand != "" {
			b.WriteString("\n   Marca: " + l.Brand)
		}
		if l.Payment != "" {
			b.WriteString("\n   💳 Forma de pago: " + l.Payment)
		}
		if l.Address != "" {
			b.WriteString("\n   📍 Dirección de entrega: " + l.Address)
		}
		blocks = append(blocks, b.String())
	}

	out := strings.Join(blocks, "\n\n") + "\n\n---"
	if len(e.Shipping) == 0 {
		return out
	}
	icon := "📦 "
	if e.Shipping[0] == "Retiro en el local" {
		icon = "🏪 "
	}
	out += "\n" + icon + e.Shipping[0]
	for _, s := range e.Shipping[1:] {
		out += "\n   " + s
	}
	return out
}

func paymentText(plan SelectedPlan) string {
	if plan.IsCash() {
		return fmt.Sprintf("Contado (%s)", plan.Name)
	}
	return fmt.Sprintf("%s — %d cuotas de $%s", plan.Name, plan.Installments, financing.FormatARS(plan.MonthlyPayment))
}

func listTitle(n int) string {
	if n == 1 {
		return "Lista de 1 producto"
	}
	return fmt.Sprintf("Lista de %d productos", n)
}
