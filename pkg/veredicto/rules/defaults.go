package rules

// DefaultRules returns the built-in absence policy. Callers that load rules
// from a file get these as the fallback when the file is absent.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "cert_missing_critical",
			Name:        "Certificado ART faltante",
			Condition:   `motivo == "ART" and duracion > 3 and not certificate_uploaded`,
			Action:      `mark_sanction()`,
			Priority:    5,
			Severity:    SeverityError,
			Explanation: "Las ausencias ART de más de 3 días exigen certificado médico; su falta es una infracción grave.",
			CreatedBy:   "system",
		},
		{
			ID:          "cert_deadline_expired",
			Name:        "Plazo de certificado vencido",
			Condition:   `not certificate_uploaded and hours_since(certificate_deadline) > 24`,
			Action:      `add_observation("el plazo para presentar el certificado venció hace más de 24 horas")`,
			Priority:    10,
			Severity:    SeverityError,
			Explanation: "Pasadas 24 horas del vencimiento sin certificado, el caso queda marcado para revisión disciplinaria.",
			CreatedBy:   "system",
		},
		{
			ID:          "excessive_duration",
			Name:        "Duración excesiva",
			Condition:   `duracion > 10`,
			Action:      `add_observation("ausencia de más de 10 días, verificar documentación de respaldo")`,
			Priority:    20,
			Severity:    SeverityWarning,
			Explanation: "Las ausencias largas requieren respaldo documental adicional.",
			CreatedBy:   "system",
		},
		{
			ID:          "frequent_absences",
			Name:        "Ausencias frecuentes",
			Condition:   `ausencias_ultimo_mes >= 3`,
			Action:      `set_fact("riesgo_empleado", "alto")`,
			Priority:    30,
			Severity:    SeverityWarning,
			Explanation: "Tres o más ausencias en el último mes elevan el riesgo del legajo.",
			CreatedBy:   "system",
		},
		{
			ID:          "high_risk_needs_approval",
			Name:        "Riesgo alto requiere supervisor",
			Condition:   `riesgo_empleado == "alto"`,
			Action:      `require_approval()`,
			Priority:    40,
			Severity:    SeverityWarning,
			Explanation: "Los legajos de riesgo alto no se aprueban sin intervención de un supervisor.",
			CreatedBy:   "system",
		},
		{
			ID:          "pending_validation",
			Name:        "Validación pendiente",
			Condition:   `validation_status != "validated"`,
			Action:      `require_approval()`,
			Priority:    50,
			Severity:    SeverityInfo,
			Explanation: "Las solicitudes sin validar pasan por aprobación manual.",
			CreatedBy:   "system",
		},
		{
			ID:          "weekend_submission",
			Name:        "Solicitud en fin de semana",
			Condition:   `is_weekend() and motivo != "ART"`,
			Action:      `add_observation("solicitud registrada en fin de semana")`,
			Priority:    60,
			Severity:    SeverityInfo,
			Explanation: "Las cargas de fin de semana se registran para seguimiento.",
			CreatedBy:   "system",
		},
	}
}
