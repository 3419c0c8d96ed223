package booking

import (
	"fmt"
	"strings"
)

// ===============================
// Dados do cliente online
// ===============================

type Customer struct {
	Name  string
	Phone string
	Email string
	Note  string
}

// EncodeNote grava os dados do cliente no texto livre da reserva; o cadastro
// definitivo do paciente acontece depois, fora deste fluxo.
func EncodeNote(c Customer) string {
	parts := []string{"[ONLINE]"}
	if v := strings.TrimSpace(c.Name); v != "" {
		parts = append(parts, "Name: "+v)
	}
	if v := strings.TrimSpace(c.Phone); v != "" {
		parts = append(parts, "Phone: "+v)
	}
	if v := strings.TrimSpace(c.Email); v != "" {
		parts = append(parts, "Email: "+v)
	}
	if v := strings.TrimSpace(c.Note); v != "" {
		parts = append(parts, "Note: "+v)
	}
	return strings.Join(parts, " | ")
}

// InvoiceRef gera a referência local da fatura a partir do id da reserva e
// do relógio, sem sequência central.
func InvoiceRef(bookingID uint, unixMilli int64) string {
	return fmt.Sprintf("BK%d-%d", bookingID, unixMilli)
}
