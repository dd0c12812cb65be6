package financing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatARS(t *testing.T) {
	cases := map[string]string{
		"0":          "0",
		"330":        "330",
		"1234.5":     "1.234,5",
		"1234.567":   "1.234,57",
		"1000000":    "1.000.000",
		"999.995":    "1.000",
		"-2500.25":   "-2.500,25",
		"333.333333": "333,33",
	}
	for in, want := range cases {
		require.Equal(t, want, FormatARS(dec(in)), in)
	}
}

func TestPresentCardAndPage(t *testing.T) {
	cash := plan(1, 1)
	cash.Name = "Contado 20%off"
	free := plan(2, 3)
	surcharged := plan(3, 6)
	surcharged.SurchargePercent = dec("20")
	surcharged.MinDownPaymentFixed = decPtr("1500")

	res := Quote(dec("12000"), []Plan{cash, free, surcharged})
	require.Len(t, res.Plans, 3)

	card := Present(res.Plans, ViewCard, 0)
	byID := map[int64]PlanView{}
	for _, v := range card {
		byID[v.PlanID] = v
	}
	require.Equal(t, "3 Cuotas Sin interés de", byID[2].Headline)
	require.Equal(t, "$4.000", byID[2].AmountText)
	require.Equal(t, "6 cuotas de", byID[3].Headline)
	require.Equal(t, "$2.400", byID[3].AmountText)
	require.Equal(t, "Anticipo: $1.500", byID[3].DownPaymentText)
	require.Equal(t, "Contado 20% OFF!", byID[1].Headline)
	require.Equal(t, "$9.600", byID[1].AmountText)
	require.Empty(t, byID[1].DownPaymentText)

	page := Present(res.Plans, ViewPage, 3)
	for _, v := range page {
		switch v.PlanID {
		case 3:
			require.Equal(t, "6 cuotas mensuales de", v.Headline)
			require.Equal(t, "$2.400 EF", v.AmountText)
			require.True(t, v.Selected)
			require.Equal(t, "Seleccionado", v.Badge)
		case 2:
			require.Equal(t, "$4.000", v.AmountText)
			require.False(t, v.Selected)
		}
	}
}

func TestParseView(t *testing.T) {
	require.Equal(t, ViewPage, ParseView("page"))
	require.Equal(t, ViewPage, ParseView(" PAGE "))
	require.Equal(t, ViewCard, ParseView(""))
	require.Equal(t, ViewCard, ParseView("card"))
}
