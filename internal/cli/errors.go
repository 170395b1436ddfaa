package cli

import (
	"errors"

	"catalog-cli/internal/clipboard"
	"catalog-cli/internal/mutate"
	"catalog-cli/internal/store"
	"catalog-cli/internal/transfer"
)

const (
	msgSaveFailed    = "บันทึกข้อมูลไม่สำเร็จ กรุณาลองใหม่อีกครั้ง"
	msgFieldsMissing = "กรุณากรอกหัวข้อและเนื้อหา"
	msgBadFormat     = "รูปแบบไฟล์ไม่ถูกต้อง กรุณาเลือกไฟล์ JSON ที่ถูกต้อง"
	msgReadFailed    = "เกิดข้อผิดพลาดในการอ่านไฟล์ กรุณาตรวจสอบว่าเป็นไฟล์ JSON ที่ถูกต้อง"
)

var errCancelled = errors.New("cancelled")

// describe is the one-line message printed for err on stderr.
func describe(err error) string {
	var pe *store.PersistenceError
	var ce *clipboard.Error
	switch {
	case errors.Is(err, transfer.ErrMalformed):
		return msgBadFormat + ": " + err.Error()
	case errors.As(err, &pe) && pe.Op == "write":
		return msgSaveFailed + ": " + err.Error()
	case errors.As(err, &ce):
		return err.Error()
	}
	if reason, ok := mutate.ReasonOf(err); ok && reason == mutate.ReasonEmptyField {
		return msgFieldsMissing + ": " + err.Error()
	}
	return err.Error()
}
