// Package adapter converts datasets for destinations that cannot store
// every property type.
//
// A Converter decides, per input property, whether it passes through, is
// retyped to the destination's hinted type, or needs an explicit
// AttributeConverter. An Adapter applies a valid Converter lazily to a
// DataSet, and Copy drives both to transfer a dataset into a Transactor.
package adapter
