// Package models contains the GORM persistence models of the WMS tables.
// Domain entities stay free of ORM tags; each model carries its table
// mapping plus ToDomain/FromDomain mappers used by the repositories.
//
// Structure:
// - base.go: BaseModel, AggregateModel
// - item.go: wms_items, wms_scan_events
// - location.go: wms_locations, bid_workflow_stages
// - repair.go: wms_repair_cases, wms_repair_vendors
// - collaborator.go: trade_workflow_records, catalog_items
package models
