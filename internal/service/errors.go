// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrValidation — ошибка валидации входных данных (без побочных эффектов).
	ErrValidation = errors.New("ошибка валидации")
	// ErrNoInvigilator — ни один наблюдатель не может быть разрешён.
	ErrNoInvigilator = errors.New("наблюдатель не найден")
	// ErrUploadFailed — объектное хранилище отклонило загрузку или недоступно;
	// отчёт прерван до каких-либо записей в базы.
	ErrUploadFailed = errors.New("загрузка доказательства не удалась")
	// ErrPersistenceFailed — реляционная транзакция не прошла или истёк таймаут;
	// уже загруженный объект становится осиротевшим (допустимо, не повторяется).
	ErrPersistenceFailed = errors.New("сохранение отчёта не удалось")
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrFetchFailed — объект доказательства недоступен при верификации.
	ErrFetchFailed = errors.New("не удалось получить объект доказательства")
)
