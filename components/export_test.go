// SPDX-License-Identifier: MIT

package components

var (
	ConvergedStep    = convergedStep
	RelativeDecrease = relativeDecrease
)
