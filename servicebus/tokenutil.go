package servicebus

import "strconv"

func uint32ToString(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}

func stringToUint32(s string) uint32 {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return uint32(v)
}
