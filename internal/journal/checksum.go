package journal

// ============================================================================
// 校驗和計算
// 職責：計算與驗證日誌紀錄的 CRC32 校驗和
// ============================================================================

import (
	"hash/crc32"
	"strconv"
)

// CalculateChecksum 計算紀錄的 CRC32 校驗和
//
// 演算法：
// - 將 Seq、ID、Kind、ResourceID、RequestID、Timestamp 與 Payload 以 '|' 串接
// - 使用 CRC32-IEEE 多項式計算
func CalculateChecksum(entry Entry) uint32 {
	h := crc32.NewIEEE()
	for _, part := range []string{
		strconv.FormatUint(entry.Seq, 10),
		entry.ID,
		entry.Kind,
		strconv.FormatInt(entry.ResourceID, 10),
		entry.RequestID,
		strconv.FormatInt(entry.Timestamp, 10),
	} {
		h.Write([]byte(part))
		h.Write([]byte{'|'})
	}
	h.Write(entry.Payload)
	return h.Sum32()
}

// VerifyChecksum 驗證紀錄的校驗和是否正確
func VerifyChecksum(entry Entry) bool {
	return entry.Checksum == CalculateChecksum(entry)
}
