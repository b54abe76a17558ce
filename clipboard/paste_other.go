//go:build !darwin

package clipboard

import "github.com/micmonay/keybd_event"

func setPasteModifier(k *keybd_event.KeyBonding) {
	k.HasCTRL(true)
}
