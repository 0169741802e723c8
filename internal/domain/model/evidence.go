package model

import "time"

// EvidenceVaultRecord — авторитетная запись о файле доказательства.
// Хранится в таблице evidence_vault, один-к-одному-или-нулю с Incident.
// Создаётся только вместе с инцидентом (в одной транзакции) и после
// создания никогда не обновляется — неизменность является основой
// последующей проверки целостности.
type EvidenceVaultRecord struct {
	// ID — первичный ключ
	ID int64
	// CaseID — инцидент, к которому относится доказательство (FK → incidents.id)
	CaseID int64
	// FileType — MIME-тип файла
	FileType string
	// StorageURL — URL объекта в объектном хранилище
	StorageURL string
	// ChecksumHash — SHA-256 hex-дайджест байт, доступных по StorageURL на момент записи
	ChecksumHash string
	// FileSizeKb — размер файла в килобайтах (округление до ближайшего)
	FileSizeKb int
	// CapturedAt — время фиксации доказательства
	CapturedAt time.Time
}

// EvidenceDocument — денормализованная копия связки доказательства
// для reporting UI. Хранится в документном хранилище по ключу IncidentID.
// НЕ авторитетна для проверки целостности: источником истины остаётся
// EvidenceVaultRecord.ChecksumHash. Отсутствие документа при существующей
// записи в vault — допустимое деградированное состояние.
type EvidenceDocument struct {
	// IncidentID — ключ документа
	IncidentID int64 `dynamodbav:"incident_id" json:"incidentId"`
	// StudentReg — регистрационный номер студента
	StudentReg string `dynamodbav:"student_reg" json:"studentReg"`
	// Description — описание инцидента со слов наблюдателя
	Description string `dynamodbav:"description" json:"description"`
	// URL — URL объекта в объектном хранилище
	URL string `dynamodbav:"url" json:"url"`
	// ExternalObjectID — ключ объекта в хранилище
	ExternalObjectID string `dynamodbav:"external_object_id" json:"externalObjectId"`
	// FileType — MIME-тип файла
	FileType string `dynamodbav:"file_type" json:"fileType"`
	// OriginalName — оригинальное имя загруженного файла
	OriginalName string `dynamodbav:"original_name" json:"originalName"`
	// UploadedAt — время загрузки
	UploadedAt time.Time `dynamodbav:"uploaded_at" json:"uploadedAt"`
}
