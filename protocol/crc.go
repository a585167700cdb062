package protocol

// CRC16 computes the link checksum: polynomial 0xA001 (reflected 0x8005),
// init 0xFFFF, LSB-first. The firmware applies it to binary/image transfer
// frames only; text-display and heartbeat frames are sent without it.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for range 8 {
			if crc&1 != 0 {
				crc = crc>>1 ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}

// AppendCRC16 appends the checksum of data to data, low byte first.
func AppendCRC16(data []byte) []byte {
	crc := CRC16(data)
	return append(data, byte(crc), byte(crc>>8))
}
