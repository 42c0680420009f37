package dian

import (
	"fmt"
	"strings"
)

// nitWeights pesos del módulo 11 de la DIAN, aplicados de derecha a izquierda sobre la base.
var nitWeights = [15]int{3, 7, 13, 17, 19, 23, 29, 37, 41, 43, 47, 53, 59, 67, 71}

const (
	minNITDigits = 6
	maxNITDigits = len(nitWeights)
)

// SplitNIT separa la base del dígito de verificación.
// Con guion el DV es lo que sigue al guion ("900.123.456-8"); sin guion, un valor
// de 10 dígitos se interpreta como base de 9 más DV. En otro caso dv queda vacío.
func SplitNIT(taxID string) (base, dv string) {
	if i := strings.LastIndexByte(taxID, '-'); i >= 0 {
		return extractDigits(taxID[:i]), extractDigits(taxID[i+1:])
	}
	digits := extractDigits(taxID)
	if len(digits) == 10 {
		return digits[:9], digits[9:]
	}
	return digits, ""
}

// ComputeNITVerificationDigit calcula el DV de una base de 6 a 15 dígitos.
func ComputeNITVerificationDigit(base string) (byte, error) {
	digits := extractDigits(base)
	if len(digits) < minNITDigits || len(digits) > maxNITDigits {
		return 0, fmt.Errorf("dian: la base del NIT debe tener entre %d y %d dígitos, se encontraron %d",
			minNITDigits, maxNITDigits, len(digits))
	}
	var sum int
	for i := 0; i < len(digits); i++ {
		sum += int(digits[len(digits)-1-i]-'0') * nitWeights[i]
	}
	r := sum % 11
	if r > 1 {
		r = 11 - r
	}
	return byte('0' + r), nil
}

// ValidateNITVerificationDigit exige DV y que coincida con el calculado.
func ValidateNITVerificationDigit(taxID string) error {
	base, dv := SplitNIT(taxID)
	if dv == "" {
		return fmt.Errorf("dian: el NIT %q debe incluir dígito de verificación", taxID)
	}
	expected, err := ComputeNITVerificationDigit(base)
	if err != nil {
		return err
	}
	if len(dv) != 1 || dv[0] != expected {
		return fmt.Errorf("dian: dígito de verificación del NIT inválido: esperado %c, recibido %s", expected, dv)
	}
	return nil
}

func extractDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
