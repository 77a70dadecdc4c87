// cmd/keygen generates an Ed25519 keypair for the trading API and prints
// both halves base64-encoded. Register the public key with the broker and
// export the private key as ROBINHOOD_PRIVATE_KEY.
package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
)

func main() {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		log.Fatalf("generate key: %v", err)
	}

	fmt.Printf("public key:  %s\n", base64.StdEncoding.EncodeToString(pub))
	fmt.Printf("private key: %s\n", base64.StdEncoding.EncodeToString(priv))
}
