package comm

// crc8Poly is x^8 + x^2 + x + 1 (CRC-8/SMBUS), initial value 0.
const crc8Poly = 0x07

var crc8Table = func() (t [256]byte) {
	for i := range t {
		c := byte(i)
		for n := 0; n < 8; n++ {
			if c&0x80 != 0 {
				c = c<<1 ^ crc8Poly
			} else {
				c <<= 1
			}
		}
		t[i] = c
	}
	return
}()

// CRC8 updates crc with bytes.
func CRC8(crc byte, bytes ...byte) byte {
	for _, b := range bytes {
		crc = crc8Table[crc^b]
	}
	return crc
}
