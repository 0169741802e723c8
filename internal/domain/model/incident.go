package model

import (
	"fmt"
	"time"
)

// IncidentStatus — статус инцидента в жизненном цикле разбора.
type IncidentStatus string

const (
	// StatusReported — инцидент зарегистрирован, ожидает рассмотрения.
	StatusReported IncidentStatus = "REPORTED"
	// StatusUnderReview — инцидент на рассмотрении комиссии.
	StatusUnderReview IncidentStatus = "UNDER_REVIEW"
	// StatusResolved — разбор инцидента завершён.
	StatusResolved IncidentStatus = "RESOLVED"
	// StatusDismissed — инцидент отклонён как необоснованный.
	StatusDismissed IncidentStatus = "DISMISSED"
)

// Incident — зарегистрированный случай нарушения на экзамене.
// Хранится в таблице incidents. Записи никогда не удаляются (аудит),
// downstream-процессы рассмотрения меняют только status.
type Incident struct {
	// ID — первичный ключ
	ID int64
	// StudentReg — регистрационный номер студента (FK → students.reg_no)
	StudentReg string
	// InvigilatorID — идентификатор наблюдателя (FK → invigilators.id)
	InvigilatorID int64
	// ExamCode — код экзамена (например, CS101)
	ExamCode string
	// Status — текущий статус инцидента
	Status IncidentStatus
	// CreatedAt — время регистрации
	CreatedAt time.Time
}

// CaseRef возвращает человекочитаемый идентификатор дела ("CASE-42").
// Используется в ответах для UI и принимается обратно в verify.
func (i *Incident) CaseRef() string {
	return fmt.Sprintf("CASE-%d", i.ID)
}
