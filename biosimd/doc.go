// Package biosimd provides byte-slice operations on ASCII DNA sequences:
// reverse complement and ACGTN validation. Reversal is delegated to
// base/simd.
package biosimd
