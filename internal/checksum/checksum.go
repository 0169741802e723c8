// Пакет checksum — вычисление контент-дайджеста доказательств.
// Один и тот же алгоритм (SHA-256, hex в нижнем регистре) используется
// при записи и при последующей проверке целостности; функции чистые,
// без побочных эффектов.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// Digest возвращает SHA-256 hex-дайджест буфера (64 символа).
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DigestReader вычисляет SHA-256 потока с подсчётом прочитанных байт.
// Ошибки чтения возвращаются вызывающему как есть.
func DigestReader(r io.Reader) (digest string, size int64, err error) {
	hasher := sha256.New()
	size, err = io.Copy(hasher, r)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(hasher.Sum(nil)), size, nil
}
