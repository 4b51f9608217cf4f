package cart

// mergeCollections unions two cart collections. Keys present on both sides
// sum their quantities and keep the remote snapshot fields, which are the
// server's view of the catalog. Order is the local collection's order with
// remote-only lines appended in their own order. Merging is idempotent for
// disjoint inputs and symmetric in content.
func mergeCollections(local, remote []LineItem) []LineItem {
	if len(local) == 0 {
		return cloneItems(remote)
	}
	if len(remote) == 0 {
		return cloneItems(local)
	}

	remoteByKey := make(map[string]LineItem, len(remote))
	for _, item := range remote {
		remoteByKey[item.ID] = item
	}

	merged := make([]LineItem, 0, len(local)+len(remote))
	seen := make(map[string]struct{}, len(local))
	for _, item := range local {
		if other, ok := remoteByKey[item.ID]; ok {
			combined := other
			combined.Quantity = item.Quantity + other.Quantity
			merged = append(merged, combined)
		} else {
			merged = append(merged, item)
		}
		seen[item.ID] = struct{}{}
	}
	for _, item := range remote {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		merged = append(merged, item)
	}
	return merged
}

// planUpload computes the mutations that bring the remote collection in line
// with the merged one: absent keys are added, keys with a different quantity
// are set. Keys already matching produce nothing, which keeps a repeated
// reconciliation a no-op.
func planUpload(merged, remote []LineItem) []Mutation {
	remoteQty := make(map[string]int, len(remote))
	for _, item := range remote {
		remoteQty[item.ID] = item.Quantity
	}

	var muts []Mutation
	for i := range merged {
		item := merged[i]
		qty, ok := remoteQty[item.ID]
		switch {
		case !ok:
			muts = append(muts, Mutation{Op: OpAdd, Key: item.ID, Item: &item, Quantity: item.Quantity})
		case qty != item.Quantity:
			muts = append(muts, Mutation{Op: OpSetQuantity, Key: item.ID, Item: &item, Quantity: item.Quantity})
		}
	}
	return muts
}
