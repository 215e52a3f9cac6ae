// Package verifier wraps gnark's Groth16 backend behind the small oracle
// surface the pre-validator consumes. Proof points arrive as raw bn254
// coordinates; the verifying key is loaded once at startup.
package verifier

import (
	"fmt"
	"math/big"
	"os"

	"github.com/consensys/gnark-crypto/ecc"
	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark/backend/groth16"
	groth16bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/backend/witness"
	log "github.com/sirupsen/logrus"

	"sponsor-backend/internal/metrics"
)

// Verifier answers whether a withdrawal proof verifies against its public
// signals. ok=false with nil error means a well-formed but invalid proof;
// a non-nil error means the proof material itself was unusable.
type Verifier interface {
	Verify(a [2]*big.Int, b [2][2]*big.Int, c [2]*big.Int, publicSignals []*big.Int) (ok bool, err error)
}

// Groth16Verifier verifies withdrawal proofs against a fixed bn254
// verifying key.
type Groth16Verifier struct {
	vk groth16.VerifyingKey
}

// LoadVerifyingKey reads a serialized bn254 verifying key from disk.
func LoadVerifyingKey(path string) (*Groth16Verifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open verifying key: %w", err)
	}
	defer f.Close()

	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(f); err != nil {
		return nil, fmt.Errorf("read verifying key %s: %w", path, err)
	}
	log.WithField("path", path).Info("Loaded Groth16 verifying key")
	return &Groth16Verifier{vk: vk}, nil
}

// NewWithKey wraps an already-loaded verifying key. Used by tests.
func NewWithKey(vk groth16.VerifyingKey) *Groth16Verifier {
	return &Groth16Verifier{vk: vk}
}

func (v *Groth16Verifier) Verify(a [2]*big.Int, b [2][2]*big.Int, c [2]*big.Int, publicSignals []*big.Int) (bool, error) {
	proof, err := assembleProof(a, b, c)
	if err != nil {
		return false, err
	}

	pub, err := witness.New(ecc.BN254.ScalarField())
	if err != nil {
		return false, fmt.Errorf("new witness: %w", err)
	}
	vals := make(chan any, len(publicSignals))
	for _, s := range publicSignals {
		if s == nil {
			return false, fmt.Errorf("nil public signal")
		}
		vals <- s
	}
	close(vals)
	if err := pub.Fill(len(publicSignals), 0, vals); err != nil {
		return false, fmt.Errorf("fill public witness: %w", err)
	}

	// A failed pairing check comes back as an error from gnark; the oracle
	// collapses it to ok=false so callers reject instead of retrying.
	if err := groth16.Verify(proof, v.vk, pub); err != nil {
		log.WithField("reason", err.Error()).Debug("Proof verification failed")
		metrics.ProofVerifications.WithLabelValues("invalid").Inc()
		return false, nil
	}
	metrics.ProofVerifications.WithLabelValues("valid").Inc()
	return true, nil
}

// assembleProof builds a gnark proof from raw affine coordinates, rejecting
// points off the curve or outside the prime-order subgroups.
func assembleProof(a [2]*big.Int, b [2][2]*big.Int, c [2]*big.Int) (*groth16bn254.Proof, error) {
	for _, v := range []*big.Int{a[0], a[1], b[0][0], b[0][1], b[1][0], b[1][1], c[0], c[1]} {
		if v == nil {
			return nil, fmt.Errorf("nil proof coordinate")
		}
	}

	var proof groth16bn254.Proof
	proof.Ar.X.SetBigInt(a[0])
	proof.Ar.Y.SetBigInt(a[1])
	proof.Bs.X.A0.SetBigInt(b[0][0])
	proof.Bs.X.A1.SetBigInt(b[0][1])
	proof.Bs.Y.A0.SetBigInt(b[1][0])
	proof.Bs.Y.A1.SetBigInt(b[1][1])
	proof.Krs.X.SetBigInt(c[0])
	proof.Krs.Y.SetBigInt(c[1])

	if !proof.Ar.IsInSubGroup() || !proof.Krs.IsInSubGroup() {
		return nil, fmt.Errorf("G1 point not in subgroup")
	}
	if !proof.Bs.IsInSubGroup() {
		return nil, fmt.Errorf("G2 point not in subgroup")
	}
	// Commitment slots stay empty: the withdrawal circuit uses no
	// Pedersen commitments.
	proof.Commitments = []bn254.G1Affine{}
	return &proof, nil
}
