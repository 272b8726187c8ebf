/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package cose implements encrypted COSE messages (RFC 9052): the
// multi-recipient COSE_Encrypt structure and the single-recipient
// COSE_Encrypt0 structure, with AES-GCM and ChaCha20-Poly1305 content
// encryption.
//
// A COSE_Encrypt message carries the content encryption key to its
// recipients through one of four key management classes: direct encryption
// with a pre-shared key, direct key agreement (ECDH-ES/SS + HKDF), AES key
// wrap, and key agreement with key wrap (ECDH-ES/SS + A128/192/256KW). The
// class is decided by the key management algorithm in the recipient headers,
// and all recipients of one message must agree on it.
//
// Example, AES key wrap with two recipients:
//
//  package main
//
//  import (
//      "fmt"
//
//      "github.com/BrianSipos/go-cose/doc/cose"
//  )
//
//  func main() {
//      kek1 := cose.GenerateSymmetricKey(16, cose.AlgorithmA128KW)
//      kek2 := cose.GenerateSymmetricKey(16, cose.AlgorithmA128KW)
//
//      r1, err := cose.NewRecipient(nil, cose.Headers{cose.HeaderAlgorithm: cose.AlgorithmA128KW})
//      if err != nil {
//          // handle error
//      }
//
//      r1.SetKey(kek1)
//
//      r2, err := cose.NewRecipient(nil, cose.Headers{cose.HeaderAlgorithm: cose.AlgorithmA128KW})
//      if err != nil {
//          // handle error
//      }
//
//      r2.SetKey(kek2)
//
//      msg, err := cose.NewEncryptMessage(
//          cose.Headers{cose.HeaderAlgorithm: cose.AlgorithmA128GCM},
//          cose.Headers{cose.HeaderIV: iv},
//          []byte("secret message"),
//          cose.WithRecipients(r1, r2))
//      if err != nil {
//          // handle error
//      }
//
//      encoded, err := msg.Encode(true, true)
//      if err != nil {
//          // handle error
//      }
//
//      // the second recipient decrypts with its own key encryption key
//      decoded, err := cose.Decode(encoded)
//      if err != nil {
//          // handle error
//      }
//
//      received := decoded.(*cose.EncryptMessage)
//      received.Recipients()[1].SetKey(kek2)
//
//      plaintext, err := received.Decrypt(received.Recipients()[1])
//      if err != nil {
//          // handle error
//      }
//
//      fmt.Printf("%s", plaintext)
//  }
package cose
