// Package share builds the outbound WhatsApp handoff for confirmed orders.
package share

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/deliverymaster/service-quote/internal/domain/delivery"
)

// BuildMessage renders the plain-text order summary sent to the courier
// chat. The wording is part of the product and stays in Portuguese.
func BuildMessage(d *delivery.Delivery) string {
	var stops []string
	for i, addr := range d.Addresses() {
		line := fmt.Sprintf("  Ponto %d: %s", i+1, addr.Value)
		if addr.Complement != "" {
			line += " " + addr.Complement
		}
		stops = append(stops, line)
	}

	var b strings.Builder
	b.WriteString("Olá, gostaria de solicitar um serviço de entrega.\n")
	if d.ApplicantName() != "" {
		fmt.Fprintf(&b, "*Solicitante:* %s\n", d.ApplicantName())
	}
	fmt.Fprintf(&b, "*ID do Pedido:* %s\n", d.DeliveryNumber())
	b.WriteString("*Endereços:*\n")
	b.WriteString(strings.Join(stops, "\n"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "*Retorno ao Ponto 1:* %s\n", simNao(d.IncludeReturn()))
	fmt.Fprintf(&b, "*Valor Estimado:* R$ %.2f\n", d.Result().EstimatedPrice)
	fmt.Fprintf(&b, "*Distância:* %g km\n", d.Result().DistanceKm)
	b.WriteString("*Forma de Pagamento:* PIX\n")
	fmt.Fprintf(&b, "*Ver Rota:* %s", d.Result().RouteMapURL)
	return b.String()
}

// Link builds the wa.me deep link carrying the URL-encoded message. The
// link is opened by the client; no response is awaited.
func Link(number, message string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", number, url.QueryEscape(message))
}

func simNao(v bool) string {
	if v {
		return "Sim"
	}
	return "Não"
}
