// Package meth calls CpG methylation on bisulfite-converted reads.
//
// Every C or T followed by G is a candidate site. Each site is scored under
// two models: methylated (the C survived conversion) and unmethylated (the C
// was converted to T with probability ConversionRate). Sites closer than
// GroupWindow bases are reported together as one call.
package meth
