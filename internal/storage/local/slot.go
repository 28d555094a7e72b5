// Package local реализует локальный уровень корзины: один слот со снимком на устройство.
package local

// SlotKey: имя слота, под которым хранится снимок корзины.
const SlotKey = "cart"

func slotKey(deviceID string) string {
	if deviceID == "" {
		return SlotKey
	}
	return SlotKey + ":" + deviceID
}

