package shoppinglist

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func enquiryState() State {
	heladera := Item{Kind: KindProduct, ID: 1, Title: "Heladera No Frost", Category: "Heladeras", Brand: "Gafa", Price: decimal.NewFromInt(800)}
	combo := Item{Kind: KindCombo, ID: 7, Title: "Combo Cocina", Category: "Combo", Price: decimal.NewFromInt(900)}
	s, _ := Reduce(NewState(), Action{Type: ActionAddItem, Item: heladera})
	s, _ = Reduce(s, Action{Type: ActionAddItem, Item: combo})
	s, _ = Reduce(s, Action{Type: ActionSetQuantity, Key: "product:1", Quantity: 2})
	s, _ = Reduce(s, Action{Type: ActionSelectPlan, Key: "product:1", Plan: SelectedPlan{
		PlanID: 2, Name: "3 cuotas", Installments: 3, MonthlyPayment: decimal.RequireFromString("293.333333"),
	}})
	s, _ = Reduce(s, Action{Type: ActionSelectPlan, Key: "combo:7", Plan: SelectedPlan{
		PlanID: 1, Name: "Contado 20%off", Installments: 1, MonthlyPayment: decimal.NewFromInt(720),
	}})
	return s
}

func TestBuildEnquiryPickup(t *testing.T) {
	enq, err := BuildEnquiry(enquiryState(), Delivery{})
	require.NoError(t, err)
	require.Equal(t, "Lista de 2 productos", enq.Title)

	want := "1. Heladera No Frost (Cantidad: 2)\n" +
		"   Categoría: Heladeras\n" +
		"   Marca: Gafa\n" +
		"   💳 Forma de pago: 3 cuotas — 3 cuotas de $293,33\n" +
		"\n" +
		"2. Combo Cocina\n" +
		"   Categoría: Combo\n" +
		"   💳 Forma de pago: Contado (Contado 20%off)\n" +
		"\n" +
		"---\n" +
		"🏪 Retiro en el local"
	require.Equal(t, want, enq.Text())
}

func TestBuildEnquirySameAddress(t *testing.T) {
	delivery := Delivery{
		Shipping:    true,
		SameAddress: true,
		Address:     Address{Street: "Av. Corrientes 1234", City: "CABA", PostalCode: "1043"},
	}
	enq, err := BuildEnquiry(enquiryState(), delivery)
	require.NoError(t, err)
	text := enq.Text()
	require.True(t, strings.HasSuffix(text, "---\n📦 Solicito envío a:\n   Dirección: Av. Corrientes 1234\n   Localidad: CABA\n   Código Postal: 1043"), text)
	require.NotContains(t, text, "📍")
}

func TestBuildEnquiryPerItemAddress(t *testing.T) {
	state := enquiryState()
	delivery := Delivery{
		Shipping: true,
		PerItem: map[string]Address{
			"product:1": {Street: "Mitre 10", City: "Quilmes", PostalCode: "1878"},
		},
	}
	_, err := BuildEnquiry(state, delivery)
	require.ErrorIs(t, err, ErrIncompleteAddress)

	delivery.PerItem["combo:7"] = Address{Street: "Belgrano 5", City: "Bernal", PostalCode: "1876"}
	enq, err := BuildEnquiry(state, delivery)
	require.NoError(t, err)
	text := enq.Text()
	require.Contains(t, text, "📍 Dirección de entrega: Mitre 10, Quilmes, CP: 1878")
	require.Contains(t, text, "📍 Dirección de entrega: Belgrano 5, Bernal, CP: 1876")
	require.True(t, strings.HasSuffix(text, "📦 Solicito envío (las direcciones están indicadas por producto arriba)"))
}

func TestDeliveryValidate(t *testing.T) {
	state := enquiryState()
	require.NoError(t, Delivery{}.Validate(state))
	require.ErrorIs(t, Delivery{Shipping: true, SameAddress: true, Address: Address{Street: "x", City: " "}}.Validate(state), ErrIncompleteAddress)
}

func TestBuildEnquiryEmptyList(t *testing.T) {
	_, err := BuildEnquiry(NewState(), Delivery{})
	require.ErrorIs(t, err, ErrEmptyList)
}

func TestRenderEnquiryPDF(t *testing.T) {
	enq, err := BuildEnquiry(enquiryState(), Delivery{})
	require.NoError(t, err)
	doc, err := RenderEnquiryPDF(enq)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(doc, []byte("%PDF-")))
}

func TestRenderEnquiryXLSX(t *testing.T) {
	enq, err := BuildEnquiry(enquiryState(), Delivery{})
	require.NoError(t, err)
	doc, err := RenderEnquiryXLSX(enq)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(doc))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	require.Equal(t, []string{"pedido", "entrega"}, f.GetSheetList())

	title, err := f.GetCellValue("pedido", "A1")
	require.NoError(t, err)
	require.Equal(t, enq.Title, title)
	product, err := f.GetCellValue("pedido", "B4")
	require.NoError(t, err)
	require.Equal(t, enq.Lines[0].Title, product)
	pickup, err := f.GetCellValue("entrega", "A1")
	require.NoError(t, err)
	require.Equal(t, "Retiro en el local", pickup)
}
