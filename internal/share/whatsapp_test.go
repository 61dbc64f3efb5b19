package share

import (
	"net/url"
	"strings"
	"testing"

	"github.com/deliverymaster/service-quote/internal/domain/delivery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func confirmedDelivery(t *testing.T, applicantName string) *delivery.Delivery {
	t.Helper()
	d, err := delivery.NewDelivery(
		applicantName,
		delivery.CalculationResult{
			DistanceKm:      12.5,
			DurationMinutes: 35,
			EstimatedPrice:  19.25,
			RouteMapURL:     "https://maps.google.com/?dir=a,b",
		},
		[]delivery.Address{
			{ID: 1, Value: "Av. Beira Mar 1000"},
			{ID: 2, Value: "Rua das Flores 200", Complement: "apto 301"},
		},
		true,
		nil,
	)
	require.NoError(t, err)
	return d
}

func TestBuildMessage(t *testing.T) {
	d := confirmedDelivery(t, "Maria")
	message := BuildMessage(d)

	assert.Contains(t, message, "*Solicitante:* Maria")
	assert.Contains(t, message, "*ID do Pedido:* "+d.DeliveryNumber())
	assert.Contains(t, message, "  Ponto 1: Av. Beira Mar 1000")
	assert.Contains(t, message, "  Ponto 2: Rua das Flores 200 apto 301")
	assert.Contains(t, message, "*Retorno ao Ponto 1:* Sim")
	assert.Contains(t, message, "*Valor Estimado:* R$ 19.25")
	assert.Contains(t, message, "*Distância:* 12.5 km")
	assert.Contains(t, message, "*Forma de Pagamento:* PIX")
	assert.Contains(t, message, "*Ver Rota:* https://maps.google.com/?dir=a,b")
}

func TestBuildMessageWithoutApplicant(t *testing.T) {
	d := confirmedDelivery(t, "")
	message := BuildMessage(d)
	assert.NotContains(t, message, "*Solicitante:*")
}

func TestLinkEncodesMessage(t *testing.T) {
	link := Link("5585987789135", "Olá, gostaria de solicitar\numa entrega")

	require.True(t, strings.HasPrefix(link, "https://wa.me/5585987789135?text="))

	parsed, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "Olá, gostaria de solicitar\numa entrega", parsed.Query().Get("text"))
}
