package model

import "time"

// Invigilator — наблюдатель, подающий отчёт о нарушении.
type Invigilator struct {
	// ID — первичный ключ
	ID int64
	// StaffID — человекочитаемый табельный идентификатор (например, PROF-001)
	StaffID string
	// Name — полное имя
	Name string
	// CreatedAt — время создания записи
	CreatedAt time.Time
}

// Student — студент, фигурирующий в инциденте.
type Student struct {
	// RegNo — регистрационный номер, первичный ключ
	RegNo string
	// Name — полное имя
	Name string
	// CreatedAt — время создания записи
	CreatedAt time.Time
}
