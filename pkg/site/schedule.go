package site

import (
	"sort"

	"github.com/foomo/sitepress/pkg/errs"
	"github.com/foomo/sitepress/pkg/pipeline"
	"github.com/foomo/sitepress/pkg/resource"
	"go.uber.org/multierr"
)

// Bucket resources of one priority, sorted by key
type Bucket struct {
	Priority  pipeline.Priority
	Resources []*resource.Resource
}

// Schedule groups resources into priority buckets in build order and rejects
// references that would not find their target built
func Schedule(resources resource.Map) ([]Bucket, error) {
	byPriority := map[pipeline.Priority][]*resource.Resource{}
	var err error
	for _, key := range resources.Keys() {
		r := resources[key]
		p, ok := r.Payload.(pipeline.Pipeline)
		if !ok {
			err = multierr.Append(err, errs.ConfigurationAt(r.Definition, "resource %s has no pipeline", r.Key))
			continue
		}
		byPriority[p.Priority()] = append(byPriority[p.Priority()], r)
	}
	if err != nil {
		return nil, err
	}
	if err := validate(resources); err != nil {
		return nil, err
	}

	var buckets []Bucket
	for _, priority := range pipeline.Priorities() {
		members := byPriority[priority]
		if len(members) == 0 {
			continue
		}
		sort.Slice(members, func(i, j int) bool {
			return members[i].Key.String() < members[j].Key.String()
		})
		buckets = append(buckets, Bucket{Priority: priority, Resources: members})
	}
	return buckets, nil
}

// validate collects every internal reference whose target is missing or not
// of a strictly lower priority
func validate(resources resource.Map) error {
	var err error
	for _, key := range resources.Keys() {
		r := resources[key]
		p := r.Payload.(pipeline.Pipeline)
		for _, ref := range p.References() {
			if ref.IsExternal() {
				continue
			}
			target, ok := resources.Get(ref.Resource)
			if !ok {
				err = multierr.Append(err, errs.ConfigurationAt(r.Definition, "%s references missing resource %s", r.Key, ref.Resource))
				continue
			}
			targetPriority := target.Payload.(pipeline.Pipeline).Priority()
			if targetPriority >= p.Priority() {
				err = multierr.Append(err, errs.ConfigurationAt(r.Definition,
					"%s (%s) references %s (%s), targets must have a lower priority",
					r.Key, p.Priority(), ref.Resource, targetPriority,
				))
			}
		}
	}
	return err
}
