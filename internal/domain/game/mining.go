package game

import "math"

// Relative tolerance for treating accumulated float rates as having reached
// the vault. 0.1 added ten times must saturate a vault of 1.
const saturationEpsilon = 1e-9

// AdvanceMining applies one simulation tick to u and reports whether the vault
// is full. A full vault is clamped exactly to VaultCapacity.
func AdvanceMining(u *UserSnapshot) bool {
	if u == nil {
		return true
	}
	if u.VaultCapacity <= 0 {
		u.TempCoins = 0
		return true
	}
	if !IsVaultFull(*u) {
		u.TempCoins += u.MiningRate
	}
	if u.TempCoins < 0 {
		u.TempCoins = 0
	}
	if IsVaultFull(*u) {
		u.TempCoins = u.VaultCapacity
		return true
	}
	return false
}

func IsVaultFull(u UserSnapshot) bool {
	tol := saturationEpsilon * math.Max(1, math.Abs(u.VaultCapacity))
	return u.TempCoins+tol >= u.VaultCapacity
}

// TicksToFill is the number of ticks AdvanceMining needs to saturate the vault
// from the current balance. It returns -1 when the vault never fills.
func TicksToFill(u UserSnapshot) int {
	if IsVaultFull(u) {
		return 0
	}
	if u.MiningRate <= 0 {
		return -1
	}
	n := int(math.Ceil((u.VaultCapacity - u.TempCoins) / u.MiningRate))
	if n < 1 {
		n = 1
	}
	return n
}
