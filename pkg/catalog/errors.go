/*
Copyright (c) 2024 Ansible Project

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package catalog

import "fmt"

// CatalogStructureFailure reports an inventory-building violation: multiple
// bundles claiming to be ansible-core, or a core bundle with the wrong FQN.
type CatalogStructureFailure struct {
	Reason string
}

func (e *CatalogStructureFailure) Error() string {
	return fmt.Sprintf("catalog structure failure: %s", e.Reason)
}
