package info

import (
	"bytes"
	"crypto/sha256"
	"math/big"
	"regexp"
	"strings"
)

var (
	legacyAddressPattern = regexp.MustCompile(`\b[13][1-9A-HJ-NP-Za-km-z]{25,34}\b`)
	segwitAddressPattern = regexp.MustCompile(`(?i)\bbc1[02-9ac-hj-np-z]{11,71}\b`)
)

const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// FindBitcoinAddresses returns the distinct mainnet addresses in text
// whose checksum verifies, in order of first appearance. Segwit
// addresses are returned in lower case.
func FindBitcoinAddresses(text string) []string {
	seen := make(map[string]bool)
	var found []string
	add := func(addr string) {
		if !seen[addr] {
			seen[addr] = true
			found = append(found, addr)
		}
	}

	for _, m := range legacyAddressPattern.FindAllStringIndex(text, -1) {
		if addr := text[m[0]:m[1]]; validLegacyAddress(addr) {
			add(addr)
		}
	}
	for _, m := range segwitAddressPattern.FindAllString(text, -1) {
		if addr := strings.ToLower(m); validSegwitAddress(addr) {
			add(addr)
		}
	}
	return found
}

// validLegacyAddress checks a P2PKH or P2SH address: 25 bytes of
// base58check with a version byte of 0x00 or 0x05.
func validLegacyAddress(addr string) bool {
	raw, ok := decodeBase58(addr)
	if !ok || len(raw) != 25 {
		return false
	}
	if raw[0] != 0x00 && raw[0] != 0x05 {
		return false
	}
	first := sha256.Sum256(raw[:21])
	second := sha256.Sum256(first[:])
	return bytes.Equal(second[:4], raw[21:])
}

func decodeBase58(s string) ([]byte, bool) {
	n := new(big.Int)
	radix := big.NewInt(58)
	for _, c := range s {
		i := strings.IndexRune(base58Alphabet, c)
		if i < 0 {
			return nil, false
		}
		n.Mul(n, radix)
		n.Add(n, big.NewInt(int64(i)))
	}

	decoded := n.Bytes()
	// Each leading '1' is a leading zero byte.
	zeros := 0
	for zeros < len(s) && s[zeros] == '1' {
		zeros++
	}
	return append(make([]byte, zeros), decoded...), true
}

const bech32Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// validSegwitAddress checks the bech32 (witness v0) or bech32m
// (witness v1+) checksum of a lower case "bc1" address.
func validSegwitAddress(addr string) bool {
	sep := strings.LastIndexByte(addr, '1')
	if sep != 2 || len(addr) > 90 || len(addr)-sep-1 < 7 {
		return false
	}
	hrp, payload := addr[:sep], addr[sep+1:]

	values := make([]int, len(payload))
	for i := range payload {
		v := strings.IndexByte(bech32Charset, payload[i])
		if v < 0 {
			return false
		}
		values[i] = v
	}

	expanded := make([]int, 0, len(hrp)*2+1+len(values))
	for i := range hrp {
		expanded = append(expanded, int(hrp[i]>>5))
	}
	expanded = append(expanded, 0)
	for i := range hrp {
		expanded = append(expanded, int(hrp[i]&31))
	}
	expanded = append(expanded, values...)

	const (
		bech32Const  = 1
		bech32mConst = 0x2bc830a3
	)
	switch polymod := bech32Polymod(expanded); {
	case values[0] == 0:
		return polymod == bech32Const
	case values[0] <= 16:
		return polymod == bech32mConst
	default:
		return false
	}
}

func bech32Polymod(values []int) int {
	gen := [5]int{0x3b6a57b2, 0x26508e6d, 0x1ea119fa, 0x3d4233dd, 0x2a1462b3}
	chk := 1
	for _, v := range values {
		top := chk >> 25
		chk = (chk&0x1ffffff)<<5 ^ v
		for i := range gen {
			if (top>>i)&1 == 1 {
				chk ^= gen[i]
			}
		}
	}
	return chk
}
